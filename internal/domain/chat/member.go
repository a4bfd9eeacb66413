package chat

import (
	"time"

	"github.com/google/uuid"
)

// ChatThreadMember holds per-viewer state for a thread: unread count and the
// viewer's own deletion. DeletedAt is a plain column, not a gorm soft delete,
// because deletion is scoped to one viewer.
type ChatThreadMember struct {
	ThreadID    uuid.UUID  `gorm:"type:uuid;primaryKey" json:"thread_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	UnreadCount int        `gorm:"column:unread_count;not null;default:0" json:"unread_count"`
	LastReadAt  *time.Time `gorm:"column:last_read_at" json:"last_read_at,omitempty"`
	DeletedAt   *time.Time `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (ChatThreadMember) TableName() string { return "chat_thread_member" }
