package push

import (
	"time"

	"github.com/google/uuid"
)

// PushToken maps one device token to the user currently signed in on that
// device. Token is the primary key, so a token belongs to at most one user.
type PushToken struct {
	Token     string    `gorm:"column:token;type:text;primaryKey" json:"token"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Platform  string    `gorm:"column:platform;not null;default:''" json:"platform"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PushToken) TableName() string { return "push_token" }
