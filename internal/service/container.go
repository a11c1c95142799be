package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/publish-studio/internal/config"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/internal/service/queue"
	"github.com/ifuryst/publish-studio/internal/store"
	"github.com/ifuryst/publish-studio/pkg/secret"
)

// Container holds the services shared by the API server and the worker.
type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  redis.UniversalClient
	Logger *zap.Logger

	Projects      *store.ProjectStore
	Posts         *store.PostStore
	Credentials   *CredentialVault
	Notifications *NotificationService
	Monitoring    *MonitoringService
	Registry      *publisher.Registry
	Queue         *queue.Queue
	Publisher     *PublisherService
}

// NewContainer connects to Postgres and Redis and assembles the services.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := NewRedis(ctx, &cfg.Redis)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	c, err := Assemble(cfg, db, rdb, logger)
	if err != nil {
		_ = (&Container{DB: db, Redis: rdb}).Close()
		return nil, err
	}
	return c, nil
}

// Assemble builds the services on top of existing connections.
func Assemble(cfg *config.Config, db *gorm.DB, rdb redis.UniversalClient, logger *zap.Logger) (*Container, error) {
	sealer, err := secret.NewSealer(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential sealer: %w", err)
	}

	c := &Container{
		Config:     cfg,
		DB:         db,
		Redis:      rdb,
		Logger:     logger,
		Projects:   store.NewProjectStore(db),
		Posts:      store.NewPostStore(db),
		Monitoring: NewMonitoringService(db, logger),
		Queue:      queue.New(rdb, cfg.Queue.KeyPrefix),
	}
	c.Credentials = NewCredentialVault(store.NewConnectionStore(db), sealer, logger)
	c.Notifications = NewNotificationService(store.NewNotificationStore(db), logger)

	c.Registry, err = NewRegistry(&cfg.Publisher, c.Credentials, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to register adapters: %w", err)
	}

	c.Publisher = NewPublisherService(PublisherDeps{
		Projects:    c.Projects,
		Posts:       c.Posts,
		Registry:    c.Registry,
		Connections: c.Credentials,
		Scheduler:   c.Queue,
		Notifier:    c.Notifications,
		Monitoring:  c.Monitoring,
		Concurrency: cfg.Publisher.Concurrency,
		Logger:      logger,
	})

	return c, nil
}

// NewConsumer builds a queue consumer that delivers due and abandoned jobs to
// the publisher.
func (c *Container) NewConsumer() *queue.Consumer {
	return queue.NewConsumer(c.Queue, c.Publisher.HandleDue, queue.ConsumerConfig{
		PollInterval: c.Config.Queue.Interval(),
		BatchSize:    c.Config.Queue.BatchSize,
		Workers:      c.Config.Queue.Workers,
		MaxAttempts:  c.Config.Queue.MaxAttempts,
		RetryDelay:   c.Config.Queue.Retry(),
		LeaseTimeout: c.Config.Queue.Lease(),
	}, c.Logger.Named("queue")).
		WithObserver(c.Monitoring).
		OnExhausted(c.Publisher.HandleExhausted)
}

func (c *Container) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
