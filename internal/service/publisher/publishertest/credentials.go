// Package publishertest holds fakes shared by adapter tests.
package publishertest

import (
	"context"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
)

// Credentials is an in-memory CredentialSource keyed by user then platform.
type Credentials map[string]map[models.PlatformName]publisher.Credential

func (c Credentials) Credential(_ context.Context, userID string, platform models.PlatformName) (*publisher.Credential, error) {
	cred, ok := c[userID][platform]
	if !ok {
		return nil, publisher.ErrNotConnected
	}
	return &cred, nil
}

// SaveCredential replaces the stored credential, like a vault renewing a token.
func (c Credentials) SaveCredential(_ context.Context, userID string, platform models.PlatformName, cred publisher.Credential) error {
	if _, ok := c[userID][platform]; !ok {
		return publisher.ErrNotConnected
	}
	c[userID][platform] = cred
	return nil
}

// Single returns a source holding one credential.
func Single(userID string, platform models.PlatformName, cred publisher.Credential) Credentials {
	return Credentials{userID: {platform: cred}}
}
