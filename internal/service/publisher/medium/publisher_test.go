package medium

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/internal/service/publisher/publishertest"
)

func newPublisher(server *httptest.Server) *MediumPublisher {
	return NewMediumPublisher(publisher.Options{
		BaseURL:     server.URL,
		HTTPClient:  server.Client(),
		Credentials: publishertest.Single("user-1", models.PlatformMedium, publisher.Credential{Token: "tok"}),
	})
}

func TestCreatePost_Success(t *testing.T) {
	var received postRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"id":"u-9","username":"writer"}}`))
	})
	mux.HandleFunc("/v1/users/u-9/posts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"abc","url":"https://medium.com/@writer/abc"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	result, err := newPublisher(server).CreatePost(context.Background(), publisher.PublishContent{
		Title:        "Hello",
		Markdown:     "Body",
		Tags:         []string{"a", "b", "c", "d", "e", "f"},
		CanonicalURL: "https://example.com/hello",
	}, "user-1")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, "abc", result.RemoteID)
	assert.Equal(t, "https://medium.com/@writer/abc", result.PublishedURL)
	assert.Equal(t, "markdown", received.ContentFormat)
	assert.Equal(t, "# Hello\n\nBody", received.Content)
	assert.Len(t, received.Tags, 5)
	assert.Equal(t, "https://example.com/hello", received.CanonicalURL)
}

func TestCreatePost_UnauthorizedBecomesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Token was invalid."}]}`))
	}))
	defer server.Close()

	result, err := newPublisher(server).CreatePost(context.Background(), publisher.PublishContent{Title: "Hello"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusError, result.Status)
	assert.Contains(t, result.Error, "lookup user")
	assert.Contains(t, result.Error, "401")
}

func TestCreatePost_NotConnected(t *testing.T) {
	p := NewMediumPublisher(publisher.Options{Credentials: publishertest.Credentials{}})
	_, err := p.CreatePost(context.Background(), publisher.PublishContent{}, "user-1")
	assert.ErrorIs(t, err, publisher.ErrNotConnected)
}

func TestUpdatePost_Unsupported(t *testing.T) {
	p := NewMediumPublisher(publisher.Options{Credentials: publishertest.Credentials{}})
	_, err := p.UpdatePost(context.Background(), publisher.PublishContent{}, "abc", "user-1")
	assert.ErrorIs(t, err, publisher.ErrUpdateUnsupported)
}
