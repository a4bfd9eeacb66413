package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatMessage is one entry in a thread. Seq is assigned per thread in append
// order and is the only ordering history relies on.
type ChatMessage struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_chat_message_thread_seq,priority:1" json:"thread_id"`
	Seq      int64          `gorm:"column:seq;not null;uniqueIndex:idx_chat_message_thread_seq,priority:2" json:"seq"`
	SenderID uuid.UUID      `gorm:"type:uuid;not null;index" json:"sender_id"`
	Body     string         `gorm:"column:body;type:text;not null" json:"body"`
	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if len(m.Metadata) == 0 {
		m.Metadata = datatypes.JSON([]byte("{}"))
	}
	return nil
}
