package publisher

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/russross/blackfriday/v2"
	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/pkg/util"
)

var (
	// ErrNotConnected is returned when the user has no stored credential for the platform.
	ErrNotConnected = errors.New("platform not connected")
	// ErrUpdateUnsupported is returned by adapters whose platform has no update API.
	ErrUpdateUnsupported = errors.New("platform does not support updating posts")
)

// PublishContent is the platform-neutral view of a project handed to adapters.
type PublishContent struct {
	ProjectID    string   `json:"project_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Markdown     string   `json:"markdown"`
	HTML         string   `json:"html"`
	Tags         []string `json:"tags"`
	CanonicalURL string   `json:"canonical_url,omitempty"`
	CoverImage   string   `json:"cover_image,omitempty"`
}

// RenderedHTML returns the HTML body, rendering the markdown when the project
// has no HTML variant.
func (c PublishContent) RenderedHTML() string {
	if c.HTML != "" {
		return c.HTML
	}
	if c.Markdown == "" {
		return ""
	}
	return string(blackfriday.Run([]byte(c.Markdown)))
}

// FromProject converts a project to PublishContent
func FromProject(project *models.Project) PublishContent {
	return PublishContent{
		ProjectID:    project.ID,
		Title:        project.Title,
		Description:  project.Description,
		Markdown:     project.BodyMarkdown,
		HTML:         project.BodyHTML,
		Tags:         append([]string(nil), project.Tags...),
		CanonicalURL: project.CanonicalURL,
		CoverImage:   project.CoverImage,
	}
}

// Credential is the decrypted per-user credential for one platform.
type Credential struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Endpoint     string    `json:"-"`
	TargetID     string    `json:"-"`
}

// CredentialSource resolves stored credentials. It returns ErrNotConnected
// when the user has none for the platform.
type CredentialSource interface {
	Credential(ctx context.Context, userID string, platform models.PlatformName) (*Credential, error)
}

// CredentialSaver stores a credential an adapter renewed, such as a refreshed
// OAuth token.
type CredentialSaver interface {
	SaveCredential(ctx context.Context, userID string, platform models.PlatformName, cred Credential) error
}

// Adapter is implemented once per external platform.
//
// Remote failures (non-2xx, transport errors, malformed responses) are reported
// as a result with status error, never as a Go error. The only errors returned
// are ErrNotConnected and, from UpdatePost, ErrUpdateUnsupported.
type Adapter interface {
	Platform() models.PlatformName
	CreatePost(ctx context.Context, content PublishContent, userID string) (*models.PlatformResult, error)
	UpdatePost(ctx context.Context, content PublishContent, remoteID, userID string) (*models.PlatformResult, error)
}

// Options carries what every adapter needs.
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Credentials CredentialSource
	Logger      *zap.Logger
}

// Client returns the configured HTTP client or a default one.
func (o Options) Client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Log returns the configured logger, falling back to a no-op logger.
func (o Options) Log() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func Succeeded(platform models.PlatformName, remoteID, url string) *models.PlatformResult {
	return &models.PlatformResult{
		Name:         platform,
		Status:       models.PostStatusSuccess,
		RemoteID:     remoteID,
		PublishedURL: url,
	}
}

func Failed(platform models.PlatformName, err error) *models.PlatformResult {
	msg := "unknown error"
	if err != nil {
		msg = util.Truncate(err.Error(), 1000)
	}
	return &models.PlatformResult{
		Name:   platform,
		Status: models.PostStatusError,
		Error:  msg,
	}
}
