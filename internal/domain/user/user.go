package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the directory entry a verified credential must resolve to.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName string         `gorm:"column:display_name;not null" json:"display_name"`
	Email       string         `gorm:"column:email;index" json:"email,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "app_user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
