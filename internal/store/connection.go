package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ifuryst/publish-studio/internal/models"
)

type ConnectionStore struct {
	db *gorm.DB
}

func NewConnectionStore(db *gorm.DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

// Upsert stores the connection, replacing any previous one for the same user and platform.
func (s *ConnectionStore) Upsert(ctx context.Context, conn *models.Connection) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{"endpoint", "target_id", "secret", "updated_at"}),
	}).Create(conn).Error; err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

func (s *ConnectionStore) Get(ctx context.Context, userID string, platform models.PlatformName) (*models.Connection, error) {
	var conn models.Connection
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return &conn, nil
}

// UpdateSecret replaces the sealed credential of an existing connection.
func (s *ConnectionStore) UpdateSecret(ctx context.Context, userID string, platform models.PlatformName, secret string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("user_id = ? AND platform = ?", userID, platform).
		Update("secret", secret)
	if result.Error != nil {
		return fmt.Errorf("failed to update connection secret: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ConnectionStore) Exists(ctx context.Context, userID string, platform models.PlatformName) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("user_id = ? AND platform = ?", userID, platform).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check connection: %w", err)
	}
	return count > 0, nil
}

func (s *ConnectionStore) ListByUser(ctx context.Context, userID string) ([]models.Connection, error) {
	var conns []models.Connection
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("platform").
		Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return conns, nil
}

func (s *ConnectionStore) Delete(ctx context.Context, userID string, platform models.PlatformName) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		Delete(&models.Connection{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
