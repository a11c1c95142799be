package hashnode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/internal/service/publisher/publishertest"
)

type capturedRequest struct {
	Query     string `json:"query"`
	Variables struct {
		Input postInput `json:"input"`
	} `json:"variables"`
}

func newPublisher(server *httptest.Server) *HashnodePublisher {
	return NewHashnodePublisher(publisher.Options{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Credentials: publishertest.Single("user-1", models.PlatformHashnode, publisher.Credential{
			Token:    "pat-1",
			TargetID: "pub-1",
		}),
	})
}

func TestCreatePost_Success(t *testing.T) {
	var received capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pat-1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"data":{"publishPost":{"post":{"id":"h-1","url":"https://blog.hashnode.dev/hello"}}}}`))
	}))
	defer server.Close()

	result, err := newPublisher(server).CreatePost(context.Background(), publisher.PublishContent{
		Title:      "Hello",
		Markdown:   "# Hello",
		Tags:       []string{"Go Lang", "go lang", "Redis"},
		CoverImage: "https://img.example.com/c.png",
	}, "user-1")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, "h-1", result.RemoteID)
	assert.Equal(t, "https://blog.hashnode.dev/hello", result.PublishedURL)

	assert.True(t, strings.Contains(received.Query, "publishPost"))
	assert.Equal(t, "pub-1", received.Variables.Input.PublicationID)
	assert.Equal(t, []tag{{Slug: "go-lang", Name: "Go Lang"}, {Slug: "redis", Name: "Redis"}}, received.Variables.Input.Tags)
	require.NotNil(t, received.Variables.Input.CoverImageOptions)
}

func TestCreatePost_GraphQLErrorBecomesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Publication not found"}]}`))
	}))
	defer server.Close()

	result, err := newPublisher(server).CreatePost(context.Background(), publisher.PublishContent{Title: "Hello"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusError, result.Status)
	assert.Equal(t, "Publication not found", result.Error)
}

func TestUpdatePost(t *testing.T) {
	var received capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"data":{"updatePost":{"post":{"id":"h-1","url":"https://blog.hashnode.dev/hello-2"}}}}`))
	}))
	defer server.Close()

	result, err := newPublisher(server).UpdatePost(context.Background(), publisher.PublishContent{Title: "Hello"}, "h-1", "user-1")
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Contains(t, received.Query, "updatePost")
	assert.Equal(t, "h-1", received.Variables.Input.ID)
}

func TestCreatePost_NotConnected(t *testing.T) {
	p := NewHashnodePublisher(publisher.Options{Credentials: publishertest.Credentials{}})
	_, err := p.CreatePost(context.Background(), publisher.PublishContent{}, "user-1")
	assert.ErrorIs(t, err, publisher.ErrNotConnected)
}
