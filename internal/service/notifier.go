package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/store"
)

// NotificationService stores user-facing notifications. Failures are logged
// and never abort the operation that produced them.
type NotificationService struct {
	store  *store.NotificationStore
	logger *zap.Logger
}

func NewNotificationService(notifications *store.NotificationStore, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		store:  notifications,
		logger: logger,
	}
}

func (n *NotificationService) NotifyPublish(ctx context.Context, project *models.Project, result models.PlatformResult) {
	kind := models.NotificationPublishSuccess
	msg := fmt.Sprintf("%q was published to %s", project.Title, result.Name)
	if !result.Succeeded() {
		kind = models.NotificationPublishFailure
		msg = fmt.Sprintf("Publishing %q to %s failed: %s", project.Title, result.Name, result.Error)
	}
	n.create(ctx, project, result.Name, kind, msg)
}

func (n *NotificationService) NotifyEdit(ctx context.Context, project *models.Project, result models.PlatformResult) {
	kind := models.NotificationEditSuccess
	msg := fmt.Sprintf("%q was updated on %s", project.Title, result.Name)
	if !result.Succeeded() {
		kind = models.NotificationEditFailure
		msg = fmt.Sprintf("Updating %q on %s failed: %s", project.Title, result.Name, result.Error)
	}
	n.create(ctx, project, result.Name, kind, msg)
}

func (n *NotificationService) NotifyScheduled(ctx context.Context, project *models.Project, at time.Time) {
	msg := fmt.Sprintf("%q is scheduled to publish at %s", project.Title, at.UTC().Format(time.RFC3339))
	n.create(ctx, project, "", models.NotificationScheduled, msg)
}

func (n *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return n.store.ListByUser(ctx, userID, limit)
}

func (n *NotificationService) MarkRead(ctx context.Context, userID string, ids []uint) error {
	return n.store.MarkRead(ctx, userID, ids)
}

func (n *NotificationService) create(ctx context.Context, project *models.Project, platform models.PlatformName, kind models.NotificationKind, msg string) {
	err := n.store.Create(ctx, &models.Notification{
		UserID:    project.UserID,
		ProjectID: project.ID,
		Platform:  platform,
		Kind:      kind,
		Message:   msg,
	})
	if err != nil {
		n.logger.Warn("Failed to store notification",
			zap.String("project_id", project.ID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
