package domain

import (
	"github.com/yungbote/roomchat-backend/internal/domain/chat"
	"github.com/yungbote/roomchat-backend/internal/domain/listing"
	"github.com/yungbote/roomchat-backend/internal/domain/push"
	"github.com/yungbote/roomchat-backend/internal/domain/user"
)

type (
	User             = user.User
	Listing          = listing.Listing
	ChatThread       = chat.ChatThread
	ChatThreadMember = chat.ChatThreadMember
	ChatMessage      = chat.ChatMessage
	ThreadSummary    = chat.ThreadSummary
	PushToken        = push.PushToken
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&User{},
		&Listing{},
		&ChatThread{},
		&ChatThreadMember{},
		&ChatMessage{},
		&PushToken{},
	}
}

func SortSummaries(rows []*ThreadSummary) { chat.SortSummaries(rows) }
