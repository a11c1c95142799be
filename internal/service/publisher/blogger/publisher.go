package blogger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
)

// OAuthConfig identifies the OAuth client the user's Blogger token was issued to.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// BloggerPublisher publishes HTML posts through the Blogger v3 API. Stored
// tokens are refreshed on demand by the oauth2 transport and written back when
// the credential source can save them.
type BloggerPublisher struct {
	baseURL     string
	client      *http.Client
	credentials publisher.CredentialSource
	logger      *zap.Logger
	oauth       *oauth2.Config
}

type postRequest struct {
	Kind    string   `json:"kind"`
	ID      string   `json:"id,omitempty"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Labels  []string `json:"labels,omitempty"`
}

type postResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func NewBloggerPublisher(opts publisher.Options, oauthCfg OAuthConfig) *BloggerPublisher {
	return &BloggerPublisher{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		client:      opts.Client(),
		credentials: opts.Credentials,
		logger:      opts.Log(),
		oauth: &oauth2.Config{
			ClientID:     oauthCfg.ClientID,
			ClientSecret: oauthCfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  oauthCfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"https://www.googleapis.com/auth/blogger"},
		},
	}
}

func (p *BloggerPublisher) Platform() models.PlatformName {
	return models.PlatformBlogger
}

func (p *BloggerPublisher) CreatePost(ctx context.Context, content publisher.PublishContent, userID string) (*models.PlatformResult, error) {
	return p.send(ctx, http.MethodPost, content, "", userID)
}

func (p *BloggerPublisher) UpdatePost(ctx context.Context, content publisher.PublishContent, remoteID, userID string) (*models.PlatformResult, error) {
	return p.send(ctx, http.MethodPut, content, remoteID, userID)
}

func (p *BloggerPublisher) send(ctx context.Context, method string, content publisher.PublishContent, remoteID, userID string) (*models.PlatformResult, error) {
	cred, err := p.credentials.Credential(ctx, userID, p.Platform())
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/blogs/%s/posts/", p.baseURL, url.PathEscape(cred.TargetID))
	if remoteID != "" {
		endpoint += url.PathEscape(remoteID)
	}

	client, tokens := p.httpClient(ctx, cred)
	resp, err := publisher.DoJSON[postResponse](ctx, client, publisher.Request{
		Method: method,
		URL:    endpoint,
		Body: postRequest{
			Kind:    "blogger#post",
			ID:      remoteID,
			Title:   content.Title,
			Content: content.RenderedHTML(),
			Labels:  content.Tags,
		},
	})
	if err == nil {
		p.saveRefreshed(ctx, userID, cred, tokens)
	}
	if err == nil && resp.ID == "" {
		err = errors.New("response did not contain a post id")
	}
	if err != nil {
		p.logger.Warn("Blogger request failed",
			zap.String("project_id", content.ProjectID),
			zap.String("method", method),
			zap.Error(err))
		return publisher.Failed(p.Platform(), err), nil
	}

	return publisher.Succeeded(p.Platform(), resp.ID, resp.URL), nil
}

// httpClient wraps the stored token in a refreshing transport built on top of
// the configured client.
func (p *BloggerPublisher) httpClient(ctx context.Context, cred *publisher.Credential) (*http.Client, oauth2.TokenSource) {
	token := &oauth2.Token{
		AccessToken:  cred.Token,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       cred.Expiry,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	tokens := p.oauth.TokenSource(ctx, token)
	client := oauth2.NewClient(ctx, tokens)
	client.Timeout = p.client.Timeout
	return client, tokens
}

// saveRefreshed writes back the token the transport obtained during a request.
// tokens caches it, so this makes no further call to the token endpoint.
func (p *BloggerPublisher) saveRefreshed(ctx context.Context, userID string, cred *publisher.Credential, tokens oauth2.TokenSource) {
	saver, ok := p.credentials.(publisher.CredentialSaver)
	if !ok {
		return
	}
	token, err := tokens.Token()
	if err != nil || token.AccessToken == cred.Token {
		return
	}

	renewed := *cred
	renewed.Token = token.AccessToken
	renewed.Expiry = token.Expiry
	if token.RefreshToken != "" {
		renewed.RefreshToken = token.RefreshToken
	}
	if err := saver.SaveCredential(ctx, userID, p.Platform(), renewed); err != nil {
		p.logger.Warn("Failed to store refreshed Blogger token",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}
