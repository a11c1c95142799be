package medium

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/pkg/util"
)

const maxTags = 5

// MediumPublisher posts markdown stories to the authenticated user's profile.
// Medium has no API for editing a published story.
type MediumPublisher struct {
	baseURL     string
	client      *http.Client
	credentials publisher.CredentialSource
	logger      *zap.Logger
}

type meResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

type postRequest struct {
	Title         string   `json:"title"`
	ContentFormat string   `json:"contentFormat"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags,omitempty"`
	CanonicalURL  string   `json:"canonicalUrl,omitempty"`
	PublishStatus string   `json:"publishStatus"`
}

type postResponse struct {
	Data struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"data"`
}

func NewMediumPublisher(opts publisher.Options) *MediumPublisher {
	return &MediumPublisher{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		client:      opts.Client(),
		credentials: opts.Credentials,
		logger:      opts.Log(),
	}
}

func (p *MediumPublisher) Platform() models.PlatformName {
	return models.PlatformMedium
}

func (p *MediumPublisher) CreatePost(ctx context.Context, content publisher.PublishContent, userID string) (*models.PlatformResult, error) {
	cred, err := p.credentials.Credential(ctx, userID, p.Platform())
	if err != nil {
		return nil, err
	}
	header := map[string]string{"Authorization": "Bearer " + cred.Token}

	me, err := publisher.DoJSON[meResponse](ctx, p.client, publisher.Request{
		Method: http.MethodGet,
		URL:    p.baseURL + "/v1/me",
		Header: header,
	})
	if err != nil {
		return p.fail(content, "lookup user", err), nil
	}
	if me.Data.ID == "" {
		return p.fail(content, "lookup user", fmt.Errorf("response did not contain a user id")), nil
	}

	body := content.Markdown
	if content.Title != "" && !strings.HasPrefix(strings.TrimSpace(body), "# ") {
		body = "# " + content.Title + "\n\n" + body
	}

	resp, err := publisher.DoJSON[postResponse](ctx, p.client, publisher.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/v1/users/%s/posts", p.baseURL, me.Data.ID),
		Header: header,
		Body: postRequest{
			Title:         content.Title,
			ContentFormat: "markdown",
			Content:       body,
			Tags:          util.NormalizeTags(content.Tags, maxTags),
			CanonicalURL:  content.CanonicalURL,
			PublishStatus: "public",
		},
	})
	if err != nil {
		return p.fail(content, "create post", err), nil
	}

	return publisher.Succeeded(p.Platform(), resp.Data.ID, resp.Data.URL), nil
}

func (p *MediumPublisher) UpdatePost(context.Context, publisher.PublishContent, string, string) (*models.PlatformResult, error) {
	return nil, publisher.ErrUpdateUnsupported
}

func (p *MediumPublisher) fail(content publisher.PublishContent, step string, err error) *models.PlatformResult {
	p.logger.Warn("Medium request failed",
		zap.String("project_id", content.ProjectID),
		zap.String("step", step),
		zap.Error(err))
	return publisher.Failed(p.Platform(), fmt.Errorf("%s: %w", step, err))
}
