package wordpress

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
)

// WordPressPublisher uses the WordPress.com REST API v1.1. The site (id or
// domain) is stored on the connection as its target.
type WordPressPublisher struct {
	baseURL     string
	client      *http.Client
	credentials publisher.CredentialSource
	logger      *zap.Logger
}

type postRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Excerpt       string `json:"excerpt,omitempty"`
	Status        string `json:"status"`
	Tags          string `json:"tags,omitempty"`
	FeaturedImage string `json:"featured_image,omitempty"`
}

type postResponse struct {
	ID  int64  `json:"ID"`
	URL string `json:"URL"`
}

func NewWordPressPublisher(opts publisher.Options) *WordPressPublisher {
	return &WordPressPublisher{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		client:      opts.Client(),
		credentials: opts.Credentials,
		logger:      opts.Log(),
	}
}

func (p *WordPressPublisher) Platform() models.PlatformName {
	return models.PlatformWordPress
}

func (p *WordPressPublisher) CreatePost(ctx context.Context, content publisher.PublishContent, userID string) (*models.PlatformResult, error) {
	return p.send(ctx, content, "new", userID)
}

// UpdatePost posts to the existing post's endpoint; the v1.1 API uses POST for edits.
func (p *WordPressPublisher) UpdatePost(ctx context.Context, content publisher.PublishContent, remoteID, userID string) (*models.PlatformResult, error) {
	return p.send(ctx, content, url.PathEscape(remoteID), userID)
}

func (p *WordPressPublisher) send(ctx context.Context, content publisher.PublishContent, target, userID string) (*models.PlatformResult, error) {
	cred, err := p.credentials.Credential(ctx, userID, p.Platform())
	if err != nil {
		return nil, err
	}

	resp, err := publisher.DoJSON[postResponse](ctx, p.client, publisher.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/sites/%s/posts/%s", p.baseURL, url.PathEscape(cred.TargetID), target),
		Header: map[string]string{"Authorization": "Bearer " + cred.Token},
		Body: postRequest{
			Title:         content.Title,
			Content:       content.RenderedHTML(),
			Excerpt:       content.Description,
			Status:        "publish",
			Tags:          strings.Join(content.Tags, ","),
			FeaturedImage: content.CoverImage,
		},
	})
	if err == nil && resp.ID == 0 {
		err = fmt.Errorf("response did not contain a post id")
	}
	if err != nil {
		p.logger.Warn("WordPress request failed",
			zap.String("project_id", content.ProjectID),
			zap.String("target", target),
			zap.Error(err))
		return publisher.Failed(p.Platform(), err), nil
	}

	return publisher.Succeeded(p.Platform(), strconv.FormatInt(resp.ID, 10), resp.URL), nil
}
