package models

import (
	"time"
)

// ErrorLog 错误日志表
type ErrorLog struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Level        string       `gorm:"size:20;not null;index" json:"level"`   // ERROR, WARN, INFO
	Source       string       `gorm:"size:100;not null;index" json:"source"` // publisher, editor, queue
	PlatformName PlatformName `gorm:"size:100;index" json:"platform_name"`
	ProjectID    string       `gorm:"index;size:36" json:"project_id"`
	Title        string       `gorm:"size:500;not null" json:"title"`
	Message      string       `gorm:"type:text;not null" json:"message"`
	StackTrace   string       `gorm:"type:text" json:"stack_trace"`
	Context      string       `gorm:"type:text" json:"context"` // JSON
	Resolved     bool         `gorm:"default:false;index" json:"resolved"`
	ResolvedAt   *time.Time   `json:"resolved_at"`
	CreatedAt    time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// All returns every model managed by AutoMigrate.
func All() []any {
	return []any{
		&Project{},
		&Post{},
		&Connection{},
		&Notification{},
		&ErrorLog{},
	}
}
