package wordpress

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

func newPublisher(server *httptest.Server) *WordPressPublisher {
	return NewWordPressPublisher(publisher.Options{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Credentials: publishertest.Single("user-1", models.PlatformWordPress, publisher.Credential{
			Token:    "wp-token",
			TargetID: "example.wordpress.com",
		}),
	})
}

func TestCreatePost_Success(t *testing.T) {
	var received postRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sites/example.wordpress.com/posts/new", r.URL.Path)
		assert.Equal(t, "Bearer wp-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"ID": 7, "URL": "https://example.wordpress.com/2024/01/01/hello/"}`))
	}))
	defer server.Close()

	result, err := newPublisher(server).CreatePost(context.Background(), publisher.PublishContent{
		Title: "Hello",
		HTML:  "<p>Hi</p>",
		Tags:  []string{"go", "web"},
	}, "user-1")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, "7", result.RemoteID)
	assert.Equal(t, "https://example.wordpress.com/2024/01/01/hello/", result.PublishedURL)
	assert.Equal(t, "<p>Hi</p>", received.Content)
	assert.Equal(t, "publish", received.Status)
	assert.Equal(t, "go,web", received.Tags)
}

func TestUpdatePost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sites/example.wordpress.com/posts/7", r.URL.Path)
		_, _ = w.Write([]byte(`{"ID": 7, "URL": "https://example.wordpress.com/hello/"}`))
	}))
	defer server.Close()

	result, err := newPublisher(server).UpdatePost(context.Background(), publisher.PublishContent{Title: "Hello"}, "7", "user-1")
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
}

func TestCreatePost_ServerErrorBecomesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"unauthorized","message":"User cannot publish posts"}`))
	}))
	defer server.Close()

	result, err := newPublisher(server).CreatePost(context.Background(), publisher.PublishContent{}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusError, result.Status)
	assert.Contains(t, result.Error, "User cannot publish posts")
}

func TestCreatePost_MalformedResponseBecomesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	result, err := newPublisher(server).CreatePost(context.Background(), publisher.PublishContent{}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusError, result.Status)
	assert.Contains(t, result.Error, "decode")
}
