package devto

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/pkg/util"
)

const maxTags = 4

// DevToPublisher publishes markdown articles through the Forem API.
type DevToPublisher struct {
	baseURL     string
	client      *http.Client
	credentials publisher.CredentialSource
	logger      *zap.Logger
}

type article struct {
	Title        string   `json:"title"`
	BodyMarkdown string   `json:"body_markdown"`
	Published    bool     `json:"published"`
	Tags         []string `json:"tags,omitempty"`
	CanonicalURL string   `json:"canonical_url,omitempty"`
	MainImage    string   `json:"main_image,omitempty"`
	Description  string   `json:"description,omitempty"`
}

type articleRequest struct {
	Article article `json:"article"`
}

type articleResponse struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

func NewDevToPublisher(opts publisher.Options) *DevToPublisher {
	return &DevToPublisher{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		client:      opts.Client(),
		credentials: opts.Credentials,
		logger:      opts.Log(),
	}
}

func (p *DevToPublisher) Platform() models.PlatformName {
	return models.PlatformDevTo
}

func (p *DevToPublisher) CreatePost(ctx context.Context, content publisher.PublishContent, userID string) (*models.PlatformResult, error) {
	return p.send(ctx, http.MethodPost, p.baseURL+"/api/articles", content, userID)
}

func (p *DevToPublisher) UpdatePost(ctx context.Context, content publisher.PublishContent, remoteID, userID string) (*models.PlatformResult, error) {
	return p.send(ctx, http.MethodPut, fmt.Sprintf("%s/api/articles/%s", p.baseURL, remoteID), content, userID)
}

func (p *DevToPublisher) send(ctx context.Context, method, url string, content publisher.PublishContent, userID string) (*models.PlatformResult, error) {
	cred, err := p.credentials.Credential(ctx, userID, p.Platform())
	if err != nil {
		return nil, err
	}

	resp, err := publisher.DoJSON[articleResponse](ctx, p.client, publisher.Request{
		Method: method,
		URL:    url,
		Header: map[string]string{"api-key": cred.Token},
		Body: articleRequest{Article: article{
			Title:        content.Title,
			BodyMarkdown: content.Markdown,
			Published:    true,
			Tags:         util.NormalizeTags(content.Tags, maxTags),
			CanonicalURL: content.CanonicalURL,
			MainImage:    content.CoverImage,
			Description:  content.Description,
		}},
	})
	if err != nil {
		p.logger.Warn("Dev.to request failed",
			zap.String("project_id", content.ProjectID),
			zap.String("method", method),
			zap.Error(err))
		return publisher.Failed(p.Platform(), err), nil
	}

	return publisher.Succeeded(p.Platform(), strconv.FormatInt(resp.ID, 10), resp.URL), nil
}
