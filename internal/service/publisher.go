package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/internal/service/queue"
	"github.com/ifuryst/publish-studio/internal/store"
)

type ProjectRepository interface {
	GetForUser(ctx context.Context, id, userID string) (*models.Project, error)
	UpdatePublishState(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id, userID string) error
}

type PostRepository interface {
	GetByProjectAndPlatform(ctx context.Context, projectID string, platform models.PlatformName) (*models.Post, error)
	EnsurePending(ctx context.Context, projectID, userID string, platform models.PlatformName) (*models.Post, error)
	UpsertResult(ctx context.Context, projectID, userID string, result models.PlatformResult) error
	RecordEdit(ctx context.Context, projectID string, result models.PlatformResult) error
	ListByProject(ctx context.Context, projectID string) ([]models.Post, error)
}

type JobScheduler interface {
	Schedule(ctx context.Context, job queue.Job) error
	Cancel(ctx context.Context, projectID string) error
	Pending(ctx context.Context, projectID string) (*queue.Job, error)
}

type ConnectionChecker interface {
	IsConnected(ctx context.Context, userID string, platform models.PlatformName) (bool, error)
}

type Notifier interface {
	NotifyPublish(ctx context.Context, project *models.Project, result models.PlatformResult)
	NotifyEdit(ctx context.Context, project *models.Project, result models.PlatformResult)
	NotifyScheduled(ctx context.Context, project *models.Project, at time.Time)
}

type PublisherDeps struct {
	Projects    ProjectRepository
	Posts       PostRepository
	Registry    *publisher.Registry
	Connections ConnectionChecker
	Scheduler   JobScheduler
	Notifier    Notifier
	Monitoring  *MonitoringService
	Concurrency int
	Logger      *zap.Logger
}

// PublisherService orchestrates publishing and editing a project across platforms
type PublisherService struct {
	projects    ProjectRepository
	posts       PostRepository
	registry    *publisher.Registry
	connections ConnectionChecker
	scheduler   JobScheduler
	notifier    Notifier
	monitoring  *MonitoringService
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

func NewPublisherService(deps PublisherDeps) *PublisherService {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = len(models.Platforms)
	}
	return &PublisherService{
		projects:    deps.Projects,
		posts:       deps.Posts,
		registry:    deps.Registry,
		connections: deps.Connections,
		scheduler:   deps.Scheduler,
		notifier:    deps.Notifier,
		monitoring:  deps.Monitoring,
		concurrency: concurrency,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// Response is returned once preconditions pass, even when every platform
// failed. Callers inspect Results for per-platform outcomes.
type Response struct {
	Status  string                  `json:"status"`
	Message string                  `json:"message"`
	Results []models.PlatformResult `json:"results"`
}

// DeleteProject cancels any pending scheduled publish and removes the project
// with its post records.
func (s *PublisherService) DeleteProject(ctx context.Context, projectID, userID string) error {
	if _, err := s.loadProject(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.scheduler.Cancel(ctx, projectID); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, projectID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	s.logger.Info("Project deleted", zap.String("project_id", projectID))
	return nil
}

func (s *PublisherService) loadProject(ctx context.Context, projectID, userID string) (*models.Project, error) {
	if projectID == "" {
		return nil, NewValidationError("project_id", "project_id is required")
	}
	project, err := s.projects.GetForUser(ctx, projectID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// normalizePlatforms validates names and removes duplicates, keeping the caller's order.
func normalizePlatforms(names []string) ([]models.PlatformName, error) {
	if len(names) == 0 {
		return nil, ErrNoPlatforms
	}
	seen := make(map[models.PlatformName]struct{}, len(names))
	platforms := make([]models.PlatformName, 0, len(names))
	for _, name := range names {
		platform, ok := models.ParsePlatformName(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPlatform, name)
		}
		if _, dup := seen[platform]; dup {
			continue
		}
		seen[platform] = struct{}{}
		platforms = append(platforms, platform)
	}
	return platforms, nil
}

// checkPreconditions requires an adapter and a stored connection for every platform.
func (s *PublisherService) checkPreconditions(ctx context.Context, userID string, platforms []models.PlatformName) error {
	var missing []models.PlatformName
	for _, platform := range platforms {
		if _, ok := s.registry.Get(platform); !ok {
			missing = append(missing, platform)
			continue
		}
		connected, err := s.connections.IsConnected(ctx, userID, platform)
		if err != nil {
			return fmt.Errorf("failed to check %s connection: %w", platform, err)
		}
		if !connected {
			missing = append(missing, platform)
		}
	}
	if len(missing) > 0 {
		return &PlatformNotConnectedError{Platforms: missing}
	}
	return nil
}

// invoke runs one adapter call. Panics and unexpected errors become an error
// result for that platform only. ErrUpdateUnsupported is passed through.
func (s *PublisherService) invoke(ctx context.Context, operation string, project *models.Project, platform models.PlatformName, call func() (*models.PlatformResult, error)) (result models.PlatformResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			s.logger.Error("Adapter panicked",
				zap.String("operation", operation),
				zap.String("platform", platform.String()),
				zap.String("project_id", project.ID),
				zap.Any("panic", r),
				zap.String("stack", stack))
			s.recordError(ctx, operation, project, platform, fmt.Sprint(r), WithStackTrace(stack))
			result, err = *publisher.Failed(platform, fmt.Errorf("adapter panicked: %v", r)), nil
		}

		outcome := "error"
		switch {
		case errors.Is(err, publisher.ErrUpdateUnsupported):
			outcome = "skipped"
		case result.Succeeded():
			outcome = "success"
		}
		s.monitoring.ObserveOutcome(operation, platform, outcome, time.Since(start))
	}()

	res, callErr := call()
	if errors.Is(callErr, publisher.ErrUpdateUnsupported) {
		return models.PlatformResult{Name: platform}, callErr
	}
	if callErr != nil {
		s.logger.Error("Adapter returned error",
			zap.String("operation", operation),
			zap.String("platform", platform.String()),
			zap.String("project_id", project.ID),
			zap.Error(callErr))
		if !errors.Is(callErr, publisher.ErrNotConnected) {
			s.recordError(ctx, operation, project, platform, callErr.Error())
		}
		return *publisher.Failed(platform, callErr), nil
	}
	if res == nil {
		return *publisher.Failed(platform, errors.New("adapter returned no result")), nil
	}

	res.Name = platform
	return *res, nil
}

func (s *PublisherService) recordError(ctx context.Context, operation string, project *models.Project, platform models.PlatformName, message string, options ...ErrorLogOption) {
	options = append(options,
		WithPlatform(platform),
		WithProject(project.ID),
		WithContext(map[string]any{"operation": operation, "user_id": project.UserID}),
	)
	_ = s.monitoring.RecordError(ctx, "ERROR", "publisher",
		fmt.Sprintf("%s %s failed", platform, operation), message, options...)
}
