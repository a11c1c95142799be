package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ifuryst/publish-studio/internal/models"
)

type ProjectStore struct {
	db *gorm.DB
}

func NewProjectStore(db *gorm.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) Create(ctx context.Context, project *models.Project) error {
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetForUser loads a project owned by userID.
func (s *ProjectStore) GetForUser(ctx context.Context, id, userID string) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

func (s *ProjectStore) ListByUser(ctx context.Context, userID string) ([]models.Project, error) {
	var projects []models.Project
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Update writes the editable content fields. Publish state is left alone.
func (s *ProjectStore) Update(ctx context.Context, project *models.Project) error {
	if err := s.db.WithContext(ctx).
		Model(project).
		Select("title", "description", "body_markdown", "body_html", "body_json",
			"tags", "canonical_url", "cover_image", "updated_at").
		Updates(project).Error; err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// UpdatePublishState writes only the fields owned by the orchestrator so a
// concurrent content edit is not overwritten.
func (s *ProjectStore) UpdatePublishState(ctx context.Context, project *models.Project) error {
	if err := s.db.WithContext(ctx).
		Model(project).
		Select("status", "platforms", "scheduled_at", "published_at", "updated_at").
		Updates(project).Error; err != nil {
		return fmt.Errorf("failed to update project state: %w", err)
	}
	return nil
}

// Delete removes a project and its post records.
func (s *ProjectStore) Delete(ctx context.Context, id, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Project{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete project: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("failed to delete project posts: %w", err)
		}
		return nil
	})
}
