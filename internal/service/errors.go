package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ifuryst/publish-studio/internal/models"
)

// Sentinel errors for publish and edit operations
var (
	// ErrProjectNotFound is returned when the project does not exist or belongs to another user
	ErrProjectNotFound = errors.New("project not found")

	// ErrNoPlatforms is returned when a request names no platform
	ErrNoPlatforms = errors.New("at least one platform is required")

	// ErrInvalidPlatform is returned for a platform name outside the supported set
	ErrInvalidPlatform = errors.New("invalid platform")

	// ErrScheduleFailed is returned when the delayed job could not be stored
	ErrScheduleFailed = errors.New("failed to schedule publish")
)

// PlatformNotConnectedError lists the requested platforms the user cannot publish to.
type PlatformNotConnectedError struct {
	Platforms []models.PlatformName
}

func (e *PlatformNotConnectedError) Error() string {
	names := make([]string, len(e.Platforms))
	for i, p := range e.Platforms {
		names[i] = p.String()
	}
	return fmt.Sprintf("platforms not connected: %s", strings.Join(names, ", "))
}

// IsPlatformNotConnected checks if err is a PlatformNotConnectedError
func IsPlatformNotConnected(err error) bool {
	var notConnected *PlatformNotConnectedError
	return errors.As(err, &notConnected)
}

// ValidationError represents a bad request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err should be answered with 400.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr) || errors.Is(err, ErrInvalidPlatform) || errors.Is(err, ErrNoPlatforms)
}
