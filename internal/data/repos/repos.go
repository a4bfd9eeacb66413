package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/data/repos/chat"
	"github.com/yungbote/roomchat-backend/internal/data/repos/push"
	"github.com/yungbote/roomchat-backend/internal/data/repos/user"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type ListingRepo = user.ListingRepo

type ChatThreadRepo = chat.ChatThreadRepo
type ChatThreadMemberRepo = chat.ChatThreadMemberRepo
type ChatMessageRepo = chat.ChatMessageRepo
type MessagePage = chat.MessagePage

type PushTokenRepo = push.PushTokenRepo

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo { return user.NewUserRepo(db, log) }
func NewListingRepo(db *gorm.DB, log *logger.Logger) ListingRepo {
	return user.NewListingRepo(db, log)
}

func NewChatThreadRepo(db *gorm.DB, log *logger.Logger) ChatThreadRepo {
	return chat.NewChatThreadRepo(db, log)
}
func NewChatThreadMemberRepo(db *gorm.DB, log *logger.Logger) ChatThreadMemberRepo {
	return chat.NewChatThreadMemberRepo(db, log)
}
func NewChatMessageRepo(db *gorm.DB, log *logger.Logger) ChatMessageRepo {
	return chat.NewChatMessageRepo(db, log)
}

func NewPushTokenRepo(db *gorm.DB, log *logger.Logger) PushTokenRepo {
	return push.NewPushTokenRepo(db, log)
}
