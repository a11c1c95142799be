package blogger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/internal/service/publisher/publishertest"
)

func newPublisher(server *httptest.Server, cred publisher.Credential) *BloggerPublisher {
	cred.TargetID = "blog-1"
	return NewBloggerPublisher(publisher.Options{
		BaseURL:     server.URL,
		HTTPClient:  server.Client(),
		Credentials: publishertest.Single("user-1", models.PlatformBlogger, cred),
	}, OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     server.URL + "/token",
	})
}

func TestCreatePost_Success(t *testing.T) {
	var received postRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/blogs/blog-1/posts/", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"kind":"blogger#post","id":"b-1","url":"https://x.blogspot.com/2024/01/hello.html"}`))
	}))
	defer server.Close()

	result, err := newPublisher(server, publisher.Credential{Token: "access-1"}).CreatePost(context.Background(), publisher.PublishContent{
		Title: "Hello",
		HTML:  "<p>Hi</p>",
		Tags:  []string{"go"},
	}, "user-1")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, "b-1", result.RemoteID)
	assert.Equal(t, "https://x.blogspot.com/2024/01/hello.html", result.PublishedURL)
	assert.Equal(t, "<p>Hi</p>", received.Content)
	assert.Equal(t, []string{"go"}, received.Labels)
}

func TestCreatePost_RefreshesExpiredToken(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-2","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/blogs/blog-1/posts/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-2", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"b-2","url":"https://x.blogspot.com/b-2.html"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	p := newPublisher(server, publisher.Credential{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Hour),
	})
	result, err := p.CreatePost(context.Background(), publisher.PublishContent{Title: "Hello"}, "user-1")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, int32(1), refreshes.Load())

	stored := p.credentials.(publishertest.Credentials)["user-1"][models.PlatformBlogger]
	assert.Equal(t, "access-2", stored.Token)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
	assert.True(t, stored.Expiry.After(time.Now()))
	assert.Equal(t, "blog-1", stored.TargetID)

	result, err = p.CreatePost(context.Background(), publisher.PublishContent{Title: "Hello again"}, "user-1")
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, int32(1), refreshes.Load(), "renewed token is reused")
}

func TestUpdatePost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/blogs/blog-1/posts/b-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"b-1","url":"https://x.blogspot.com/hello.html"}`))
	}))
	defer server.Close()

	result, err := newPublisher(server, publisher.Credential{Token: "access-1"}).UpdatePost(context.Background(), publisher.PublishContent{Title: "Hello"}, "b-1", "user-1")
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
}

func TestCreatePost_RefreshFailureBecomesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	result, err := newPublisher(server, publisher.Credential{
		Token:        "access-1",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}).CreatePost(context.Background(), publisher.PublishContent{Title: "Hello"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusError, result.Status)
	assert.Contains(t, result.Error, "invalid_grant")
}
