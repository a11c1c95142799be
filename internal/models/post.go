package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostStatus is the per-platform publish state.
type PostStatus string

const (
	PostStatusPending PostStatus = "pending"
	PostStatusSuccess PostStatus = "success"
	PostStatusError   PostStatus = "error"
)

// Post tracks one project on one platform. There is at most one row per
// (project, platform) pair.
type Post struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	UserID       string       `gorm:"not null;index;size:255" json:"user_id"`
	ProjectID    string       `gorm:"not null;size:36;uniqueIndex:idx_posts_project_platform" json:"project_id"`
	Platform     PlatformName `gorm:"not null;size:50;uniqueIndex:idx_posts_project_platform" json:"platform"`
	RemoteID     string       `gorm:"size:255" json:"post_id,omitempty"`
	Status       PostStatus   `gorm:"size:50;default:'pending';index" json:"status"`
	PublishedURL string       `gorm:"size:1024" json:"published_url,omitempty"`
	PublishedAt  *time.Time   `json:"published_at,omitempty"`
	Error        string       `gorm:"type:text" json:"error,omitempty"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PlatformResult is the normalized outcome of one create or update call.
type PlatformResult struct {
	Name         PlatformName `json:"name"`
	Status       PostStatus   `json:"status"`
	PublishedURL string       `json:"published_url,omitempty"`
	RemoteID     string       `json:"remote_id,omitempty"`
	Error        string       `json:"error,omitempty"`
}

func (r PlatformResult) Succeeded() bool {
	return r.Status == PostStatusSuccess
}
