package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
	"github.com/ifuryst/publish-studio/internal/service/queue"
	"github.com/ifuryst/publish-studio/internal/store"
)

type PublishRequest struct {
	ProjectID   string     `json:"project_id"`
	UserID      string     `json:"-"`
	Platforms   []string   `json:"platforms"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// outcome is one platform's result within a run. attempted is false when the
// platform already had a successful post and was skipped.
type outcome struct {
	result    models.PlatformResult
	attempted bool
}

// Publish publishes the project to the requested platforms now, or schedules
// it when ScheduledAt lies in the future.
func (s *PublisherService) Publish(ctx context.Context, req PublishRequest) (*Response, error) {
	platforms, err := normalizePlatforms(req.Platforms)
	if err != nil {
		return nil, err
	}

	project, err := s.loadProject(ctx, req.ProjectID, req.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.checkPreconditions(ctx, req.UserID, platforms); err != nil {
		return nil, err
	}

	if req.ScheduledAt != nil && req.ScheduledAt.After(s.now()) {
		return s.schedule(ctx, project, platforms, *req.ScheduledAt)
	}

	outcomes, err := s.run(ctx, project, platforms, false)
	if err != nil {
		return nil, err
	}

	results := make([]models.PlatformResult, len(outcomes))
	succeeded := 0
	for i, o := range outcomes {
		results[i] = o.result
		if o.result.Succeeded() {
			succeeded++
		}
	}

	return &Response{
		Status:  "success",
		Message: fmt.Sprintf("Published to %d of %d platforms", succeeded, len(results)),
		Results: results,
	}, nil
}

// HandleDue is the queue handler for scheduled publishes. A job whose
// project no longer exists is dropped.
func (s *PublisherService) HandleDue(ctx context.Context, job queue.Job) error {
	project, err := s.projects.GetForUser(ctx, job.ProjectID, job.UserID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("Dropping scheduled publish for missing project",
			zap.String("job_id", job.ID),
			zap.String("project_id", job.ProjectID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	platforms := make([]models.PlatformName, 0, len(job.Platforms))
	for _, platform := range job.Platforms {
		if !platform.Valid() {
			s.logger.Warn("Ignoring unknown platform in job",
				zap.String("job_id", job.ID),
				zap.String("platform", platform.String()))
			continue
		}
		platforms = append(platforms, platform)
	}

	s.logger.Info("Running scheduled publish",
		zap.String("job_id", job.ID),
		zap.String("project_id", project.ID),
		zap.Int("attempt", job.Attempts+1))

	_, err = s.run(ctx, project, platforms, true)
	return err
}

// schedule stores a job for the project. Platforms of a job already pending
// for the project are carried over so their pending posts still get published.
func (s *PublisherService) schedule(ctx context.Context, project *models.Project, platforms []models.PlatformName, at time.Time) (*Response, error) {
	previous, err := s.scheduler.Pending(ctx, project.ID)
	if err != nil {
		s.logger.Error("Failed to read pending publish",
			zap.String("project_id", project.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrScheduleFailed, err)
	}
	if previous != nil {
		platforms = mergePlatforms(platforms, previous.Platforms)
	}

	err = s.scheduler.Schedule(ctx, queue.Job{
		ProjectID: project.ID,
		UserID:    project.UserID,
		Platforms: platforms,
		DueAt:     at,
	})
	if err != nil {
		s.logger.Error("Failed to schedule publish",
			zap.String("project_id", project.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrScheduleFailed, err)
	}
	s.monitoring.ObserveQueue("scheduled")

	results := make([]models.PlatformResult, 0, len(platforms))
	for _, platform := range platforms {
		post, err := s.posts.EnsurePending(ctx, project.ID, project.UserID, platform)
		if err != nil {
			s.restoreSchedule(ctx, project.ID, previous)
			return nil, err
		}
		results = append(results, models.PlatformResult{
			Name:         platform,
			Status:       post.Status,
			RemoteID:     post.RemoteID,
			PublishedURL: post.PublishedURL,
		})
	}

	scheduledAt := at.UTC()
	project.Status = models.ProjectStatusScheduled
	project.ScheduledAt = &scheduledAt
	if err := s.projects.UpdatePublishState(ctx, project); err != nil {
		s.restoreSchedule(ctx, project.ID, previous)
		return nil, err
	}

	s.notifier.NotifyScheduled(ctx, project, scheduledAt)
	s.logger.Info("Publish scheduled",
		zap.String("project_id", project.ID),
		zap.Time("scheduled_at", scheduledAt),
		zap.Int("platforms", len(platforms)))

	return &Response{
		Status:  "success",
		Message: fmt.Sprintf("Scheduled for %s", scheduledAt.Format(time.RFC3339)),
		Results: results,
	}, nil
}

// restoreSchedule puts back the job that was pending before a failed
// schedule, or removes the new one when there was none.
func (s *PublisherService) restoreSchedule(ctx context.Context, projectID string, previous *queue.Job) {
	var err error
	if previous != nil {
		err = s.scheduler.Schedule(ctx, *previous)
	} else {
		err = s.scheduler.Cancel(ctx, projectID)
	}
	if err != nil {
		s.logger.Error("Failed to roll back scheduled publish",
			zap.String("project_id", projectID),
			zap.Error(err))
	}
}

// mergePlatforms appends the valid platforms of earlier that requested lacks.
func mergePlatforms(requested, earlier []models.PlatformName) []models.PlatformName {
	seen := make(map[models.PlatformName]struct{}, len(requested))
	merged := make([]models.PlatformName, 0, len(requested)+len(earlier))
	for _, platform := range requested {
		seen[platform] = struct{}{}
		merged = append(merged, platform)
	}
	for _, platform := range earlier {
		if _, dup := seen[platform]; dup || !platform.Valid() {
			continue
		}
		seen[platform] = struct{}{}
		merged = append(merged, platform)
	}
	return merged
}

// HandleExhausted settles a scheduled publish the queue gave up on. Posts the
// job left pending are marked failed and the project leaves the scheduled
// state unless it was rescheduled meanwhile.
func (s *PublisherService) HandleExhausted(ctx context.Context, job queue.Job, cause error) {
	logger := s.logger.With(zap.String("job_id", job.ID), zap.String("project_id", job.ProjectID))

	project, err := s.projects.GetForUser(ctx, job.ProjectID, job.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Error("Failed to load project for exhausted job", zap.Error(err))
		}
		return
	}

	pending, err := s.scheduler.Pending(ctx, job.ProjectID)
	if err != nil {
		logger.Error("Failed to read pending publish", zap.Error(err))
		return
	}
	if pending != nil {
		logger.Info("Project was rescheduled, keeping it scheduled")
		return
	}

	message := fmt.Sprintf("scheduled publish gave up after %d attempts: %v", job.Attempts, cause)
	outcomes := make([]outcome, 0, len(job.Platforms))
	for _, platform := range job.Platforms {
		if !platform.Valid() {
			continue
		}
		post, err := s.posts.GetByProjectAndPlatform(ctx, project.ID, platform)
		if err != nil || post == nil || post.Status != models.PostStatusPending {
			continue
		}
		result := *publisher.Failed(platform, errors.New(message))
		if err := s.posts.UpsertResult(ctx, project.ID, project.UserID, result); err != nil {
			logger.Error("Failed to persist publish result",
				zap.String("platform", platform.String()),
				zap.Error(err))
			continue
		}
		s.notifier.NotifyPublish(ctx, project, result)
		outcomes = append(outcomes, outcome{result: result, attempted: true})
	}

	if err := s.aggregate(ctx, project, outcomes, true); err != nil {
		logger.Error("Failed to settle project after exhausted job", zap.Error(err))
	}

	_ = s.monitoring.RecordError(ctx, "ERROR", "queue", "Scheduled publish gave up", message,
		WithProject(project.ID),
		WithContext(map[string]any{"job_id": job.ID, "attempts": job.Attempts, "user_id": project.UserID}),
	)
	logger.Warn("Scheduled publish abandoned",
		zap.Int("attempts", job.Attempts),
		zap.String("status", string(project.Status)))
}

// run fans out to every platform, waits for all of them and aggregates the
// project status. Outcomes are returned in the order of platforms.
func (s *PublisherService) run(ctx context.Context, project *models.Project, platforms []models.PlatformName, fromJob bool) ([]outcome, error) {
	content := publisher.FromProject(project)
	outcomes := make([]outcome, len(platforms))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, platform := range platforms {
		g.Go(func() error {
			outcomes[i] = s.publishOne(ctx, project, content, platform)
			return nil
		})
	}
	_ = g.Wait()

	if err := s.aggregate(ctx, project, outcomes, fromJob); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (s *PublisherService) publishOne(ctx context.Context, project *models.Project, content publisher.PublishContent, platform models.PlatformName) outcome {
	post, err := s.posts.EnsurePending(ctx, project.ID, project.UserID, platform)
	if err != nil {
		s.logger.Error("Failed to prepare post record",
			zap.String("project_id", project.ID),
			zap.String("platform", platform.String()),
			zap.Error(err))
		return outcome{result: *publisher.Failed(platform, err)}
	}

	if !shouldAttempt(post) {
		s.logger.Info("Platform already published, skipping",
			zap.String("project_id", project.ID),
			zap.String("platform", platform.String()))
		return outcome{result: models.PlatformResult{
			Name:         platform,
			Status:       models.PostStatusSuccess,
			RemoteID:     post.RemoteID,
			PublishedURL: post.PublishedURL,
		}}
	}

	var result models.PlatformResult
	adapter, ok := s.registry.Get(platform)
	if !ok {
		result = *publisher.Failed(platform, fmt.Errorf("no adapter registered for %s", platform))
	} else {
		result, _ = s.invoke(ctx, "create", project, platform, func() (*models.PlatformResult, error) {
			return adapter.CreatePost(ctx, content, project.UserID)
		})
	}

	if err := s.posts.UpsertResult(ctx, project.ID, project.UserID, result); err != nil {
		s.logger.Error("Failed to persist publish result",
			zap.String("project_id", project.ID),
			zap.String("platform", platform.String()),
			zap.Error(err))
		// Without a stored row the platform cannot count as published.
		result.Status = models.PostStatusError
		result.Error = fmt.Sprintf("failed to record result: %v", err)
	}

	s.notifier.NotifyPublish(ctx, project, result)
	s.logger.Info("Publishing completed",
		zap.String("project_id", project.ID),
		zap.String("platform", platform.String()),
		zap.Bool("success", result.Succeeded()),
		zap.String("remote_id", result.RemoteID))

	return outcome{result: result, attempted: true}
}

// shouldAttempt is false once a platform has a successful post; republishing
// it goes through Edit instead.
func shouldAttempt(post *models.Post) bool {
	return post.Status != models.PostStatusSuccess
}

// aggregate derives the project status from the stored posts, so a platform
// only counts as published once its success row exists.
func (s *PublisherService) aggregate(ctx context.Context, project *models.Project, outcomes []outcome, fromJob bool) error {
	succeededNow := false
	results := make([]models.PlatformResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.result
		if o.attempted && o.result.Succeeded() {
			succeededNow = true
		}
	}

	posts, err := s.posts.ListByProject(ctx, project.ID)
	if err != nil {
		return err
	}
	anySuccess := false
	for _, post := range posts {
		if post.Status == models.PostStatusSuccess {
			anySuccess = true
			break
		}
	}

	switch {
	case anySuccess:
		project.Status = models.ProjectStatusPublished
	case !fromJob && project.Status == models.ProjectStatusScheduled:
		// a scheduled job is still pending
	default:
		project.Status = models.ProjectStatusDraft
	}

	if succeededNow {
		now := s.now().UTC()
		project.PublishedAt = &now
	}
	if fromJob {
		project.ScheduledAt = nil
	}
	project.MergeResults(results)

	if err := s.projects.UpdatePublishState(ctx, project); err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	return nil
}
