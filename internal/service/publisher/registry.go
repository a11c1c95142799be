package publisher

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/models"
)

// Registry maps platform names to adapters. It is built once at startup and
// read concurrently afterwards.
type Registry struct {
	adapters map[models.PlatformName]Adapter
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		adapters: make(map[models.PlatformName]Adapter),
		logger:   logger,
	}
}

func (r *Registry) Register(adapter Adapter) error {
	platform := adapter.Platform()
	if !platform.Valid() {
		return fmt.Errorf("unknown platform %q", platform)
	}
	if _, exists := r.adapters[platform]; exists {
		return fmt.Errorf("adapter for platform %s already registered", platform)
	}

	r.adapters[platform] = adapter
	r.logger.Info("Adapter registered", zap.String("platform", platform.String()))
	return nil
}

func (r *Registry) Get(platform models.PlatformName) (Adapter, bool) {
	adapter, ok := r.adapters[platform]
	return adapter, ok
}

// Platforms returns the registered platforms in display order.
func (r *Registry) Platforms() []models.PlatformName {
	var platforms []models.PlatformName
	for _, platform := range models.Platforms {
		if _, ok := r.adapters[platform]; ok {
			platforms = append(platforms, platform)
		}
	}
	return platforms
}
