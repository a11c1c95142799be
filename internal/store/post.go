package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ifuryst/publish-studio/internal/models"
)

// PostStore persists the per-(project, platform) publish records.
type PostStore struct {
	db *gorm.DB
}

func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{db: db}
}

// GetByProjectAndPlatform returns nil, nil when no record exists.
func (s *PostStore) GetByProjectAndPlatform(ctx context.Context, projectID string, platform models.PlatformName) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND platform = ?", projectID, platform).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

// EnsurePending creates a pending record if none exists and moves a failed one
// back to pending. A successful record is returned unchanged.
func (s *PostStore) EnsurePending(ctx context.Context, projectID, userID string, platform models.PlatformName) (*models.Post, error) {
	post := &models.Post{
		ProjectID: projectID,
		UserID:    userID,
		Platform:  platform,
		Status:    models.PostStatusPending,
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	existing, err := s.GetByProjectAndPlatform(ctx, projectID, platform)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("post for %s vanished after insert", platform)
	}

	if existing.Status == models.PostStatusError {
		if err := s.db.WithContext(ctx).
			Model(existing).
			Where("status = ?", models.PostStatusError).
			Update("status", models.PostStatusPending).Error; err != nil {
			return nil, fmt.Errorf("failed to reset post status: %w", err)
		}
		existing.Status = models.PostStatusPending
	}
	return existing, nil
}

// UpsertResult writes the outcome of one adapter call. Remote id and URL are
// only overwritten when the result carries them, so a failure never erases
// the identifiers of an earlier successful publish.
func (s *PostStore) UpsertResult(ctx context.Context, projectID, userID string, result models.PlatformResult) error {
	post := &models.Post{
		ProjectID:    projectID,
		UserID:       userID,
		Platform:     result.Name,
		Status:       result.Status,
		RemoteID:     result.RemoteID,
		PublishedURL: result.PublishedURL,
		Error:        result.Error,
	}

	columns := []string{"status", "error", "updated_at"}
	if result.RemoteID != "" {
		columns = append(columns, "remote_id")
	}
	if result.PublishedURL != "" {
		columns = append(columns, "published_url")
	}
	if result.Succeeded() {
		now := time.Now()
		post.PublishedAt = &now
		columns = append(columns, "published_at")
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(post).Error; err != nil {
		return fmt.Errorf("failed to upsert post result: %w", err)
	}
	return nil
}

// RecordEdit writes the outcome of an update call onto an existing record. It
// never touches remote_id or published_at, and keeps the URL unless a new one
// was returned.
func (s *PostStore) RecordEdit(ctx context.Context, projectID string, result models.PlatformResult) error {
	updates := map[string]any{
		"status": result.Status,
		"error":  result.Error,
	}
	if result.Succeeded() && result.PublishedURL != "" {
		updates["published_url"] = result.PublishedURL
	}
	res := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("project_id = ? AND platform = ?", projectID, result.Name).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to record edit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostStore) ListByProject(ctx context.Context, projectID string) ([]models.Post, error) {
	var posts []models.Post
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (s *PostStore) DeleteByProject(ctx context.Context, projectID string) error {
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	return nil
}
