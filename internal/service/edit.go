package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
)

type EditRequest struct {
	ProjectID string   `json:"project_id"`
	UserID    string   `json:"-"`
	Platforms []string `json:"platforms"`
}

type editTarget struct {
	platform models.PlatformName
	remoteID string
}

// Edit pushes the current project content to platforms it was already
// published to. Platforms without a successful post are skipped silently.
// Edits never change the project status.
func (s *PublisherService) Edit(ctx context.Context, req EditRequest) (*Response, error) {
	platforms, err := normalizePlatforms(req.Platforms)
	if err != nil {
		return nil, err
	}

	project, err := s.loadProject(ctx, req.ProjectID, req.UserID)
	if err != nil {
		return nil, err
	}

	var targets []editTarget
	for _, platform := range platforms {
		post, err := s.posts.GetByProjectAndPlatform(ctx, project.ID, platform)
		if err != nil {
			return nil, err
		}
		if post == nil || post.Status != models.PostStatusSuccess || post.RemoteID == "" {
			s.logger.Debug("Nothing to edit, skipping",
				zap.String("project_id", project.ID),
				zap.String("platform", platform.String()))
			continue
		}
		targets = append(targets, editTarget{platform: platform, remoteID: post.RemoteID})
	}

	if len(targets) == 0 {
		return &Response{
			Status:  "success",
			Message: "No published posts to update",
			Results: []models.PlatformResult{},
		}, nil
	}

	qualifying := make([]models.PlatformName, len(targets))
	for i, target := range targets {
		qualifying[i] = target.platform
	}
	if err := s.checkPreconditions(ctx, req.UserID, qualifying); err != nil {
		return nil, err
	}

	content := publisher.FromProject(project)
	results := make([]*models.PlatformResult, len(targets))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			results[i] = s.editOne(ctx, project, content, target)
			return nil
		})
	}
	_ = g.Wait()

	reported := make([]models.PlatformResult, 0, len(results))
	updated := 0
	for _, result := range results {
		if result == nil {
			continue
		}
		if result.Succeeded() {
			updated++
		}
		reported = append(reported, *result)
	}

	return &Response{
		Status:  "success",
		Message: fmt.Sprintf("Updated %d of %d platforms", updated, len(reported)),
		Results: reported,
	}, nil
}

// editOne returns nil when the platform cannot update posts.
func (s *PublisherService) editOne(ctx context.Context, project *models.Project, content publisher.PublishContent, target editTarget) *models.PlatformResult {
	adapter, ok := s.registry.Get(target.platform)
	if !ok {
		return publisher.Failed(target.platform, fmt.Errorf("no adapter registered for %s", target.platform))
	}

	result, err := s.invoke(ctx, "update", project, target.platform, func() (*models.PlatformResult, error) {
		return adapter.UpdatePost(ctx, content, target.remoteID, project.UserID)
	})
	if errors.Is(err, publisher.ErrUpdateUnsupported) {
		s.logger.Info("Platform does not support updates, skipping",
			zap.String("project_id", project.ID),
			zap.String("platform", target.platform.String()))
		return nil
	}

	if err := s.posts.RecordEdit(ctx, project.ID, result); err != nil {
		s.logger.Error("Failed to persist edit result",
			zap.String("project_id", project.ID),
			zap.String("platform", target.platform.String()),
			zap.Error(err))
	}

	s.notifier.NotifyEdit(ctx, project, result)
	s.logger.Info("Edit completed",
		zap.String("project_id", project.ID),
		zap.String("platform", target.platform.String()),
		zap.Bool("success", result.Succeeded()))

	return &result
}
