package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/roomchat-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.User {
	tb.Helper()
	u := &types.User{ID: uuid.New(), DisplayName: name}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedListing(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, title string) *types.Listing {
	tb.Helper()
	l := &types.Listing{ID: uuid.New(), OwnerID: ownerID, Title: title}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed listing: %v", err)
	}
	return l
}

// SeedThread creates a thread with both member rows and no messages.
func SeedThread(tb testing.TB, ctx context.Context, tx *gorm.DB, listing *types.Listing, inquirerID uuid.UUID, lastAt time.Time) *types.ChatThread {
	tb.Helper()
	th := &types.ChatThread{
		ID:            uuid.New(),
		ListingID:     listing.ID,
		OwnerID:       listing.OwnerID,
		InquirerID:    inquirerID,
		LastMessageAt: lastAt.UTC(),
	}
	if err := tx.WithContext(ctx).Create(th).Error; err != nil {
		tb.Fatalf("seed thread: %v", err)
	}
	for _, uid := range th.Participants() {
		m := &types.ChatThreadMember{ThreadID: th.ID, UserID: uid}
		if err := tx.WithContext(ctx).Create(m).Error; err != nil {
			tb.Fatalf("seed thread member: %v", err)
		}
	}
	return th
}
