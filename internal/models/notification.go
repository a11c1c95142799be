package models

import "time"

type NotificationKind string

const (
	NotificationPublishSuccess NotificationKind = "publish_success"
	NotificationPublishFailure NotificationKind = "publish_failure"
	NotificationEditSuccess    NotificationKind = "edit_success"
	NotificationEditFailure    NotificationKind = "edit_failure"
	NotificationScheduled      NotificationKind = "schedule"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    string           `gorm:"not null;index;size:255" json:"user_id"`
	ProjectID string           `gorm:"index;size:36" json:"project_id"`
	Platform  PlatformName     `gorm:"size:50" json:"platform,omitempty"`
	Kind      NotificationKind `gorm:"size:50;not null" json:"kind"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Read      bool             `gorm:"default:false" json:"read"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}
