package ghost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
)

const acceptVersion = "v5.0"

// GhostPublisher publishes HTML posts through a site's Admin API. The site URL
// comes from the connection endpoint.
type GhostPublisher struct {
	client      *http.Client
	credentials publisher.CredentialSource
	logger      *zap.Logger
	now         func() time.Time
}

type tag struct {
	Name string `json:"name"`
}

type post struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title"`
	HTML          string `json:"html"`
	Status        string `json:"status"`
	Tags          []tag  `json:"tags,omitempty"`
	CustomExcerpt string `json:"custom_excerpt,omitempty"`
	CanonicalURL  string `json:"canonical_url,omitempty"`
	FeatureImage  string `json:"feature_image,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

type postsEnvelope struct {
	Posts []post `json:"posts"`
}

type postsResponse struct {
	Posts []struct {
		ID        string `json:"id"`
		URL       string `json:"url"`
		UpdatedAt string `json:"updated_at"`
	} `json:"posts"`
}

func NewGhostPublisher(opts publisher.Options) *GhostPublisher {
	return &GhostPublisher{
		client:      opts.Client(),
		credentials: opts.Credentials,
		logger:      opts.Log(),
		now:         time.Now,
	}
}

func (p *GhostPublisher) Platform() models.PlatformName {
	return models.PlatformGhost
}

func (p *GhostPublisher) CreatePost(ctx context.Context, content publisher.PublishContent, userID string) (*models.PlatformResult, error) {
	cred, err := p.credentials.Credential(ctx, userID, p.Platform())
	if err != nil {
		return nil, err
	}

	header, err := p.authHeader(cred)
	if err != nil {
		return p.fail(content, "sign token", err), nil
	}

	resp, err := publisher.DoJSON[postsResponse](ctx, p.client, publisher.Request{
		Method: http.MethodPost,
		URL:    adminURL(cred.Endpoint, "posts/?source=html"),
		Header: header,
		Body:   postsEnvelope{Posts: []post{buildPost(content, "")}},
	})
	if err == nil && len(resp.Posts) == 0 {
		err = errors.New("response did not contain a post")
	}
	if err != nil {
		return p.fail(content, "create post", err), nil
	}

	return publisher.Succeeded(p.Platform(), resp.Posts[0].ID, resp.Posts[0].URL), nil
}

// UpdatePost reads the current updated_at first; Ghost rejects edits that do
// not carry it.
func (p *GhostPublisher) UpdatePost(ctx context.Context, content publisher.PublishContent, remoteID, userID string) (*models.PlatformResult, error) {
	cred, err := p.credentials.Credential(ctx, userID, p.Platform())
	if err != nil {
		return nil, err
	}

	header, err := p.authHeader(cred)
	if err != nil {
		return p.fail(content, "sign token", err), nil
	}

	current, err := publisher.DoJSON[postsResponse](ctx, p.client, publisher.Request{
		Method: http.MethodGet,
		URL:    adminURL(cred.Endpoint, fmt.Sprintf("posts/%s/", remoteID)),
		Header: header,
	})
	if err == nil && len(current.Posts) == 0 {
		err = errors.New("post not found")
	}
	if err != nil {
		return p.fail(content, "read post", err), nil
	}

	resp, err := publisher.DoJSON[postsResponse](ctx, p.client, publisher.Request{
		Method: http.MethodPut,
		URL:    adminURL(cred.Endpoint, fmt.Sprintf("posts/%s/?source=html", remoteID)),
		Header: header,
		Body:   postsEnvelope{Posts: []post{buildPost(content, current.Posts[0].UpdatedAt)}},
	})
	if err == nil && len(resp.Posts) == 0 {
		err = errors.New("response did not contain a post")
	}
	if err != nil {
		return p.fail(content, "update post", err), nil
	}

	return publisher.Succeeded(p.Platform(), resp.Posts[0].ID, resp.Posts[0].URL), nil
}

func (p *GhostPublisher) authHeader(cred *publisher.Credential) (map[string]string, error) {
	token, err := adminToken(cred.Token, p.now())
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization":  "Ghost " + token,
		"Accept-Version": acceptVersion,
	}, nil
}

func (p *GhostPublisher) fail(content publisher.PublishContent, step string, err error) *models.PlatformResult {
	p.logger.Warn("Ghost request failed",
		zap.String("project_id", content.ProjectID),
		zap.String("step", step),
		zap.Error(err))
	return publisher.Failed(p.Platform(), fmt.Errorf("%s: %w", step, err))
}

func adminURL(endpoint, path string) string {
	return strings.TrimRight(endpoint, "/") + "/ghost/api/admin/" + path
}

func buildPost(content publisher.PublishContent, updatedAt string) post {
	tags := make([]tag, 0, len(content.Tags))
	for _, name := range content.Tags {
		if name = strings.TrimSpace(name); name != "" {
			tags = append(tags, tag{Name: name})
		}
	}
	return post{
		Title:         content.Title,
		HTML:          content.RenderedHTML(),
		Status:        "published",
		Tags:          tags,
		CustomExcerpt: content.Description,
		CanonicalURL:  content.CanonicalURL,
		FeatureImage:  content.CoverImage,
		UpdatedAt:     updatedAt,
	}
}
