package hashnode

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/pkg/util"
)

const maxTags = 5

const publishPostMutation = `mutation PublishPost($input: PublishPostInput!) {
  publishPost(input: $input) {
    post { id url }
  }
}`

const updatePostMutation = `mutation UpdatePost($input: UpdatePostInput!) {
  updatePost(input: $input) {
    post { id url }
  }
}`

// HashnodePublisher talks to the Hashnode GraphQL API. The publication id is
// stored on the connection as its target.
type HashnodePublisher struct {
	endpoint    string
	client      *http.Client
	credentials publisher.CredentialSource
	logger      *zap.Logger
}

type tag struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type coverImage struct {
	CoverImageURL string `json:"coverImageURL"`
}

type postInput struct {
	ID                 string      `json:"id,omitempty"`
	PublicationID      string      `json:"publicationId"`
	Title              string      `json:"title"`
	Subtitle           string      `json:"subtitle,omitempty"`
	ContentMarkdown    string      `json:"contentMarkdown"`
	Tags               []tag       `json:"tags"`
	OriginalArticleURL string      `json:"originalArticleURL,omitempty"`
	CoverImageOptions  *coverImage `json:"coverImageOptions,omitempty"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type postPayload struct {
	Post *struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"post"`
}

type graphQLResponse struct {
	Data struct {
		PublishPost *postPayload `json:"publishPost"`
		UpdatePost  *postPayload `json:"updatePost"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func NewHashnodePublisher(opts publisher.Options) *HashnodePublisher {
	return &HashnodePublisher{
		endpoint:    strings.TrimRight(opts.BaseURL, "/"),
		client:      opts.Client(),
		credentials: opts.Credentials,
		logger:      opts.Log(),
	}
}

func (p *HashnodePublisher) Platform() models.PlatformName {
	return models.PlatformHashnode
}

func (p *HashnodePublisher) CreatePost(ctx context.Context, content publisher.PublishContent, userID string) (*models.PlatformResult, error) {
	return p.mutate(ctx, publishPostMutation, content, "", userID)
}

func (p *HashnodePublisher) UpdatePost(ctx context.Context, content publisher.PublishContent, remoteID, userID string) (*models.PlatformResult, error) {
	return p.mutate(ctx, updatePostMutation, content, remoteID, userID)
}

func (p *HashnodePublisher) mutate(ctx context.Context, query string, content publisher.PublishContent, remoteID, userID string) (*models.PlatformResult, error) {
	cred, err := p.credentials.Credential(ctx, userID, p.Platform())
	if err != nil {
		return nil, err
	}

	input := postInput{
		ID:                 remoteID,
		PublicationID:      cred.TargetID,
		Title:              content.Title,
		Subtitle:           content.Description,
		ContentMarkdown:    content.Markdown,
		Tags:               buildTags(content.Tags),
		OriginalArticleURL: content.CanonicalURL,
	}
	if content.CoverImage != "" {
		input.CoverImageOptions = &coverImage{CoverImageURL: content.CoverImage}
	}

	resp, err := publisher.DoJSON[graphQLResponse](ctx, p.client, publisher.Request{
		Method: http.MethodPost,
		URL:    p.endpoint,
		Header: map[string]string{"Authorization": cred.Token},
		Body: graphQLRequest{
			Query:     query,
			Variables: map[string]any{"input": input},
		},
	})
	if err == nil {
		err = resp.err()
	}
	if err != nil {
		p.logger.Warn("Hashnode mutation failed",
			zap.String("project_id", content.ProjectID),
			zap.Bool("update", remoteID != ""),
			zap.Error(err))
		return publisher.Failed(p.Platform(), err), nil
	}

	post := resp.post()
	return publisher.Succeeded(p.Platform(), post.ID, post.URL), nil
}

func (r *graphQLResponse) post() *postPayload {
	if r.Data.PublishPost != nil {
		return r.Data.PublishPost
	}
	return r.Data.UpdatePost
}

// err reports GraphQL level errors, which Hashnode returns with status 200.
func (r *graphQLResponse) err() error {
	if len(r.Errors) > 0 {
		messages := make([]string, 0, len(r.Errors))
		for _, e := range r.Errors {
			messages = append(messages, e.Message)
		}
		return errors.New(strings.Join(messages, "; "))
	}
	if payload := r.post(); payload == nil || payload.Post == nil || payload.Post.ID == "" {
		return errors.New("response did not contain a post")
	}
	return nil
}

func buildTags(tags []string) []tag {
	result := make([]tag, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, name := range tags {
		slug := util.GenerateSlug(name)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		result = append(result, tag{Slug: slug, Name: strings.TrimSpace(name)})
		if len(result) == maxTags {
			break
		}
	}
	return result
}
