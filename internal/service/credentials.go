package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/internal/store"
	"github.com/ifuryst/publish-studio/pkg/secret"
)

// ConnectRequest is a credential submitted by the user for one platform.
type ConnectRequest struct {
	Platform     models.PlatformName `json:"-"`
	Token        string              `json:"token"`
	RefreshToken string              `json:"refresh_token"`
	Expiry       *time.Time          `json:"expiry"`
	Endpoint     string              `json:"endpoint"`
	TargetID     string              `json:"target_id"`
}

// CredentialVault seals platform credentials before they reach the database
// and opens them for adapters.
type CredentialVault struct {
	connections *store.ConnectionStore
	sealer      *secret.Sealer
	logger      *zap.Logger
}

func NewCredentialVault(connections *store.ConnectionStore, sealer *secret.Sealer, logger *zap.Logger) *CredentialVault {
	return &CredentialVault{
		connections: connections,
		sealer:      sealer,
		logger:      logger,
	}
}

// Credential implements publisher.CredentialSource.
func (v *CredentialVault) Credential(ctx context.Context, userID string, platform models.PlatformName) (*publisher.Credential, error) {
	conn, err := v.connections.Get(ctx, userID, platform)
	if errors.Is(err, store.ErrNotFound) {
		return nil, publisher.ErrNotConnected
	}
	if err != nil {
		return nil, err
	}

	plaintext, err := v.sealer.Open(conn.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s credential: %w", platform, err)
	}

	var cred publisher.Credential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode %s credential: %w", platform, err)
	}
	cred.Endpoint = conn.Endpoint
	cred.TargetID = conn.TargetID
	return &cred, nil
}

func (v *CredentialVault) IsConnected(ctx context.Context, userID string, platform models.PlatformName) (bool, error) {
	return v.connections.Exists(ctx, userID, platform)
}

// Connect validates and stores a credential, replacing any previous one.
func (v *CredentialVault) Connect(ctx context.Context, userID string, req ConnectRequest) (*models.Connection, error) {
	if err := validateConnect(req); err != nil {
		return nil, err
	}

	cred := publisher.Credential{Token: strings.TrimSpace(req.Token), RefreshToken: req.RefreshToken}
	if req.Expiry != nil {
		cred.Expiry = *req.Expiry
	}
	sealed, err := v.seal(cred)
	if err != nil {
		return nil, err
	}

	conn := &models.Connection{
		UserID:   userID,
		Platform: req.Platform,
		Endpoint: strings.TrimRight(strings.TrimSpace(req.Endpoint), "/"),
		TargetID: strings.TrimSpace(req.TargetID),
		Secret:   sealed,
	}
	if err := v.connections.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	v.logger.Info("Platform connected",
		zap.String("user_id", userID),
		zap.String("platform", req.Platform.String()))
	return v.connections.Get(ctx, userID, req.Platform)
}

// SaveCredential implements publisher.CredentialSaver. Only the sealed secret
// changes; endpoint and target stay as connected.
func (v *CredentialVault) SaveCredential(ctx context.Context, userID string, platform models.PlatformName, cred publisher.Credential) error {
	sealed, err := v.seal(cred)
	if err != nil {
		return err
	}
	err = v.connections.UpdateSecret(ctx, userID, platform, sealed)
	if errors.Is(err, store.ErrNotFound) {
		return publisher.ErrNotConnected
	}
	if err != nil {
		return err
	}
	v.logger.Debug("Platform credential renewed",
		zap.String("user_id", userID),
		zap.String("platform", platform.String()))
	return nil
}

func (v *CredentialVault) seal(cred publisher.Credential) (string, error) {
	plaintext, err := json.Marshal(cred)
	if err != nil {
		return "", fmt.Errorf("failed to encode credential: %w", err)
	}
	return v.sealer.Seal(plaintext)
}

func (v *CredentialVault) Disconnect(ctx context.Context, userID string, platform models.PlatformName) error {
	return v.connections.Delete(ctx, userID, platform)
}

func (v *CredentialVault) List(ctx context.Context, userID string) ([]models.Connection, error) {
	return v.connections.ListByUser(ctx, userID)
}

func validateConnect(req ConnectRequest) error {
	if !req.Platform.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPlatform, req.Platform)
	}
	if strings.TrimSpace(req.Token) == "" {
		return NewValidationError("token", "token is required")
	}

	switch req.Platform {
	case models.PlatformGhost:
		u, err := url.Parse(strings.TrimSpace(req.Endpoint))
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return NewValidationError("endpoint", "Ghost requires the site URL")
		}
		if id, key, ok := strings.Cut(req.Token, ":"); !ok || id == "" || key == "" {
			return NewValidationError("token", "Ghost admin key must have the form id:secret")
		}
	case models.PlatformHashnode:
		if strings.TrimSpace(req.TargetID) == "" {
			return NewValidationError("target_id", "Hashnode requires the publication id")
		}
	case models.PlatformWordPress:
		if strings.TrimSpace(req.TargetID) == "" {
			return NewValidationError("target_id", "WordPress requires the site id or domain")
		}
	case models.PlatformBlogger:
		if strings.TrimSpace(req.TargetID) == "" {
			return NewValidationError("target_id", "Blogger requires the blog id")
		}
	}
	return nil
}
