package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatus is the aggregated publish state of a project.
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusPublished ProjectStatus = "published"
	ProjectStatusScheduled ProjectStatus = "scheduled"
)

// Project is the piece of content a user drafts once and publishes to many platforms.
type Project struct {
	ID           string           `gorm:"primaryKey;size:36" json:"id"`
	UserID       string           `gorm:"not null;index;size:255" json:"user_id"`
	Title        string           `gorm:"not null;size:500" json:"title"`
	Description  string           `gorm:"type:text" json:"description"`
	BodyMarkdown string           `gorm:"type:text" json:"body_markdown"`
	BodyHTML     string           `gorm:"type:text" json:"body_html"`
	BodyJSON     string           `gorm:"type:text" json:"body_json,omitempty"`
	Tags         []string         `gorm:"type:jsonb;serializer:json" json:"tags"`
	CanonicalURL string           `gorm:"size:1024" json:"canonical_url,omitempty"`
	CoverImage   string           `gorm:"size:1024" json:"cover_image,omitempty"`
	Status       ProjectStatus    `gorm:"size:50;default:'draft';index" json:"status"`
	Platforms    []PlatformResult `gorm:"type:jsonb;serializer:json" json:"platforms"`
	ScheduledAt  *time.Time       `json:"scheduled_at,omitempty"`
	PublishedAt  *time.Time       `json:"published_at,omitempty"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = ProjectStatusDraft
	}
	return nil
}

// MergeResults replaces the entries of p.Platforms that appear in results and
// appends the rest, keeping the existing order.
func (p *Project) MergeResults(results []PlatformResult) {
	index := make(map[PlatformName]int, len(p.Platforms))
	for i, existing := range p.Platforms {
		index[existing.Name] = i
	}
	for _, result := range results {
		if i, ok := index[result.Name]; ok {
			p.Platforms[i] = result
			continue
		}
		index[result.Name] = len(p.Platforms)
		p.Platforms = append(p.Platforms, result)
	}
}
