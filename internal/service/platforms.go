package service

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/config"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/internal/service/publisher/blogger"
	"github.com/ifuryst/publish-studio/internal/service/publisher/devto"
	"github.com/ifuryst/publish-studio/internal/service/publisher/ghost"
	"github.com/ifuryst/publish-studio/internal/service/publisher/hashnode"
	"github.com/ifuryst/publish-studio/internal/service/publisher/medium"
	"github.com/ifuryst/publish-studio/internal/service/publisher/wordpress"
)

// NewRegistry registers an adapter for every platform not disabled in config.
func NewRegistry(cfg *config.PublisherConfig, credentials publisher.CredentialSource, logger *zap.Logger) (*publisher.Registry, error) {
	registry := publisher.NewRegistry(logger)
	client := &http.Client{Timeout: cfg.Timeout()}

	options := func(platformCfg config.PlatformConfig, name string) publisher.Options {
		return publisher.Options{
			BaseURL:     platformCfg.BaseURL,
			HTTPClient:  client,
			Credentials: credentials,
			Logger:      logger.With(zap.String("platform", name)),
		}
	}

	var adapters []publisher.Adapter
	if !cfg.DevTo.Disabled {
		adapters = append(adapters, devto.NewDevToPublisher(options(cfg.DevTo, "DevTo")))
	}
	if !cfg.Medium.Disabled {
		adapters = append(adapters, medium.NewMediumPublisher(options(cfg.Medium, "Medium")))
	}
	if !cfg.Hashnode.Disabled {
		adapters = append(adapters, hashnode.NewHashnodePublisher(options(cfg.Hashnode, "Hashnode")))
	}
	if !cfg.Ghost.Disabled {
		adapters = append(adapters, ghost.NewGhostPublisher(options(cfg.Ghost, "Ghost")))
	}
	if !cfg.WordPress.Disabled {
		adapters = append(adapters, wordpress.NewWordPressPublisher(options(cfg.WordPress, "WordPress")))
	}
	if !cfg.Blogger.Disabled {
		adapters = append(adapters, blogger.NewBloggerPublisher(options(cfg.Blogger.PlatformConfig, "Blogger"), blogger.OAuthConfig{
			ClientID:     cfg.Blogger.ClientID,
			ClientSecret: cfg.Blogger.ClientSecret,
			TokenURL:     cfg.Blogger.TokenURL,
		}))
	}

	for _, adapter := range adapters {
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
