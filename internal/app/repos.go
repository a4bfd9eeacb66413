package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/data/repos"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

type Repos struct {
	User        repos.UserRepo
	Listing     repos.ListingRepo
	ChatThread  repos.ChatThreadRepo
	ChatMember  repos.ChatThreadMemberRepo
	ChatMessage repos.ChatMessageRepo
	PushToken   repos.PushTokenRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        repos.NewUserRepo(db, log),
		Listing:     repos.NewListingRepo(db, log),
		ChatThread:  repos.NewChatThreadRepo(db, log),
		ChatMember:  repos.NewChatThreadMemberRepo(db, log),
		ChatMessage: repos.NewChatMessageRepo(db, log),
		PushToken:   repos.NewPushTokenRepo(db, log),
	}
}
