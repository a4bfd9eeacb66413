package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatThread is a conversation between a listing owner and one inquirer.
type ChatThread struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_thread_listing_inquirer,priority:1" json:"listing_id"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	InquirerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_thread_listing_inquirer,priority:2" json:"inquirer_id"`

	LastMessageText string    `gorm:"column:last_message_text;type:text;not null;default:''" json:"last_message_text"`
	LastMessageAt   time.Time `gorm:"column:last_message_at;not null;index" json:"last_message_at"`
	MessageSeq      int64     `gorm:"column:message_seq;not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ChatThread) TableName() string { return "chat_thread" }

func (t *ChatThread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Participants returns owner then inquirer.
func (t *ChatThread) Participants() []uuid.UUID {
	return []uuid.UUID{t.OwnerID, t.InquirerID}
}

func (t *ChatThread) HasParticipant(userID uuid.UUID) bool {
	return userID != uuid.Nil && (t.OwnerID == userID || t.InquirerID == userID)
}

// Counterpart returns the other participant for viewer.
func (t *ChatThread) Counterpart(viewer uuid.UUID) uuid.UUID {
	if viewer == t.OwnerID {
		return t.InquirerID
	}
	return t.OwnerID
}
