package ghost

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/internal/service/publisher/publishertest"
)

const (
	keyID     = "6489f0a1"
	keySecret = "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"
)

func newPublisher(server *httptest.Server) *GhostPublisher {
	return NewGhostPublisher(publisher.Options{
		HTTPClient: server.Client(),
		Credentials: publishertest.Single("user-1", models.PlatformGhost, publisher.Credential{
			Token:    keyID + ":" + keySecret,
			Endpoint: server.URL + "/",
		}),
	})
}

func verifyToken(t *testing.T, header string) {
	t.Helper()
	raw, ok := strings.CutPrefix(header, "Ghost ")
	if !assert.True(t, ok, "authorization scheme") {
		return
	}
	secret, _ := hex.DecodeString(keySecret)
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		assert.Equal(t, keyID, token.Header["kid"])
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("/admin/"))
	if assert.NoError(t, err) {
		assert.True(t, token.Valid)
	}
}

func TestAdminToken_InvalidKey(t *testing.T) {
	_, err := adminToken("no-colon", time.Now())
	assert.Error(t, err)
	_, err = adminToken("id:not-hex", time.Now())
	assert.Error(t, err)
}

func TestCreatePost_Success(t *testing.T) {
	var received postsEnvelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ghost/api/admin/posts/", r.URL.Path)
		assert.Equal(t, "html", r.URL.Query().Get("source"))
		assert.Equal(t, acceptVersion, r.Header.Get("Accept-Version"))
		verifyToken(t, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"posts":[{"id":"g-1","url":"https://blog.example.com/hello/","updated_at":"2024-01-01T00:00:00.000Z"}]}`))
	}))
	defer server.Close()

	result, err := newPublisher(server).CreatePost(context.Background(), publisher.PublishContent{
		Title:    "Hello",
		Markdown: "# Hello",
		Tags:     []string{"Go", " "},
	}, "user-1")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, "g-1", result.RemoteID)
	assert.Equal(t, "https://blog.example.com/hello/", result.PublishedURL)
	require.Len(t, received.Posts, 1)
	assert.Contains(t, received.Posts[0].HTML, "<h1>Hello</h1>", "markdown is rendered when no HTML exists")
	assert.Equal(t, "published", received.Posts[0].Status)
	assert.Equal(t, []tag{{Name: "Go"}}, received.Posts[0].Tags)
}

func TestUpdatePost_SendsUpdatedAt(t *testing.T) {
	var received postsEnvelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ghost/api/admin/posts/g-1/", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"posts":[{"id":"g-1","url":"https://blog.example.com/hello/","updated_at":"2024-01-01T00:00:00.000Z"}]}`))
		case http.MethodPut:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			_, _ = w.Write([]byte(`{"posts":[{"id":"g-1","url":"https://blog.example.com/hello/"}]}`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer server.Close()

	result, err := newPublisher(server).UpdatePost(context.Background(), publisher.PublishContent{
		Title: "Hello again",
		HTML:  "<p>v2</p>",
	}, "g-1", "user-1")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	require.Len(t, received.Posts, 1)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", received.Posts[0].UpdatedAt)
	assert.Equal(t, "<p>v2</p>", received.Posts[0].HTML)
}

func TestUpdatePost_MissingRemotePost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Post not found."}]}`))
	}))
	defer server.Close()

	result, err := newPublisher(server).UpdatePost(context.Background(), publisher.PublishContent{}, "g-404", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusError, result.Status)
	assert.Contains(t, result.Error, "read post")
}

func TestCreatePost_BadKeyBecomesResult(t *testing.T) {
	p := NewGhostPublisher(publisher.Options{
		Credentials: publishertest.Single("user-1", models.PlatformGhost, publisher.Credential{
			Token:    "garbage",
			Endpoint: "https://blog.example.com",
		}),
	})
	result, err := p.CreatePost(context.Background(), publisher.PublishContent{}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusError, result.Status)
	assert.Contains(t, result.Error, "sign token")
}
