package ghost

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 5 * time.Minute

// adminToken signs the short-lived JWT the Ghost Admin API expects. adminKey
// is the "id:secret" pair shown in the Ghost integration settings.
func adminToken(adminKey string, now time.Time) (string, error) {
	id, secret, ok := strings.Cut(adminKey, ":")
	if !ok || id == "" || secret == "" {
		return "", fmt.Errorf("admin key must have the form id:secret")
	}
	key, err := hex.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("invalid admin key secret: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		Audience:  jwt.ClaimStrings{"/admin/"},
	})
	token.Header["kid"] = id

	return token.SignedString(key)
}
