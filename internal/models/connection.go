package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Connection holds a user's credential for one platform. Secret is the sealed
// credential and never leaves the server.
type Connection struct {
	ID        string       `gorm:"primaryKey;size:36" json:"id"`
	UserID    string       `gorm:"not null;size:255;uniqueIndex:idx_connections_user_platform" json:"user_id"`
	Platform  PlatformName `gorm:"not null;size:50;uniqueIndex:idx_connections_user_platform" json:"platform"`
	Endpoint  string       `gorm:"size:1024" json:"endpoint,omitempty"`
	TargetID  string       `gorm:"size:255" json:"target_id,omitempty"`
	Secret    string       `gorm:"type:text;not null" json:"-"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Connection) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
