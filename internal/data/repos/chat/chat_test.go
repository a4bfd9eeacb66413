package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
)

func TestListSummariesForUserProjectsViewerState(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	log := testutil.Logger(t)

	owner := testutil.SeedUser(t, ctx, db, "Olive")
	alice := testutil.SeedUser(t, ctx, db, "Alice")
	bob := testutil.SeedUser(t, ctx, db, "Bob")
	roomA := testutil.SeedListing(t, ctx, db, owner.ID, "Room A")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	older := testutil.SeedThread(t, ctx, db, roomA, alice.ID, base)
	newer := testutil.SeedThread(t, ctx, db, roomA, bob.ID, base.Add(time.Minute))

	threads := NewChatThreadRepo(db, log)
	members := NewChatThreadMemberRepo(db, log)

	require.NoError(t, members.BumpUnread(dbc, older.ID, alice.ID, base))

	got, err := threads.ListSummariesForUser(dbc, owner.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
	assert.Equal(t, "Room A", got[1].ListingTitle)
	assert.Equal(t, "Olive", got[1].OwnerName)
	assert.Equal(t, "Alice", got[1].InquirerName)
	assert.Equal(t, 1, got[1].UnreadCount)

	forAlice, err := threads.ListSummariesForUser(dbc, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, forAlice, 1)
	assert.Equal(t, 0, forAlice[0].UnreadCount, "sender's own message must not count as unread")

	deleted, err := members.SoftDelete(dbc, older.ID, owner.ID, base)
	require.NoError(t, err)
	assert.True(t, deleted)
	again, err := members.SoftDelete(dbc, older.ID, owner.ID, base)
	require.NoError(t, err)
	assert.False(t, again, "second delete is a no-op")

	got, err = threads.ListSummariesForUser(dbc, owner.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, newer.ID, got[0].ID)

	require.NoError(t, members.BumpUnread(dbc, older.ID, alice.ID, base.Add(2*time.Minute)))
	got, err = threads.ListSummariesForUser(dbc, owner.ID, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2, "a new message resurfaces a thread the viewer deleted")
}

func TestListSummariesForUserReturnsEveryThreadWithoutLimit(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	owner := testutil.SeedUser(t, ctx, db, "Olive")
	room := testutil.SeedListing(t, ctx, db, owner.ID, "Room A")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	const n = 260
	var oldest uuid.UUID
	for i := 0; i < n; i++ {
		guest := testutil.SeedUser(t, ctx, db, "Guest")
		th := testutil.SeedThread(t, ctx, db, room, guest.ID, base.Add(time.Duration(i)*time.Second))
		if i == 0 {
			oldest = th.ID
		}
	}

	threads := NewChatThreadRepo(db, testutil.Logger(t))
	got, err := threads.ListSummariesForUser(dbc, owner.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, n)
	assert.Equal(t, oldest, got[n-1].ID)

	got, err = threads.ListSummariesForUser(dbc, owner.ID, 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestTouchLastMessageIsMonotonic(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	owner := testutil.SeedUser(t, ctx, db, "Olive")
	alice := testutil.SeedUser(t, ctx, db, "Alice")
	listing := testutil.SeedListing(t, ctx, db, owner.ID, "Loft")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	th := testutil.SeedThread(t, ctx, db, listing, alice.ID, base)

	repo := NewChatThreadRepo(db, testutil.Logger(t))
	require.NoError(t, repo.TouchLastMessage(dbc, th.ID, "later", base.Add(10*time.Second)))
	require.NoError(t, repo.TouchLastMessage(dbc, th.ID, "stale", base.Add(5*time.Second)))

	got, err := repo.GetByID(dbc, th.ID)
	require.NoError(t, err)
	assert.Equal(t, "later", got.LastMessageText)
	assert.True(t, got.LastMessageAt.Equal(base.Add(10*time.Second)))
}

func TestMemberMarkReadAndEnsure(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewChatThreadMemberRepo(db, testutil.Logger(t))

	threadID := uuid.New()
	a, b := uuid.New(), uuid.New()
	require.NoError(t, repo.EnsureMembers(dbc, threadID, []uuid.UUID{a, b}))
	require.NoError(t, repo.EnsureMembers(dbc, threadID, []uuid.UUID{a, b}), "ensure is idempotent")
	require.NoError(t, repo.BumpUnread(dbc, threadID, a, time.Now()))
	require.NoError(t, repo.BumpUnread(dbc, threadID, a, time.Now()))

	m, err := repo.Get(dbc, threadID, b)
	require.NoError(t, err)
	assert.Equal(t, 2, m.UnreadCount)

	ok, err := repo.MarkRead(dbc, threadID, b, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	m, err = repo.Get(dbc, threadID, b)
	require.NoError(t, err)
	assert.Equal(t, 0, m.UnreadCount)
	assert.NotNil(t, m.LastReadAt)

	ok, err = repo.MarkRead(dbc, threadID, uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessageListByThreadOrdersOldestFirst(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewChatMessageRepo(db, testutil.Logger(t))

	threadID, sender := uuid.New(), uuid.New()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var rows []*types.ChatMessage
	for i := 0; i < 3; i++ {
		rows = append(rows, &types.ChatMessage{ThreadID: threadID, SenderID: sender, Body: string(rune('a' + i)), CreatedAt: at})
	}
	_, err := repo.Create(dbc, rows)
	require.NoError(t, err)
	for i, m := range rows {
		assert.Equal(t, int64(i+1), m.Seq)
	}

	got, err := repo.ListByThread(dbc, threadID, MessagePage{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Body)
	assert.Equal(t, "c", got[1].Body)

	got, err = repo.ListByThread(dbc, threadID, MessagePage{Limit: 10, BeforeSeq: got[0].Seq})
	require.NoError(t, err)
	require.Len(t, got, 1, "a message sharing the page edge timestamp stays reachable")
	assert.Equal(t, "a", got[0].Body)

	more, err := repo.Create(dbc, []*types.ChatMessage{{ThreadID: threadID, SenderID: sender, Body: "d", CreatedAt: at}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), more[0].Seq)
}

func TestNextMessageSeqCountsPerThread(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	owner := testutil.SeedUser(t, ctx, db, "Olive")
	alice := testutil.SeedUser(t, ctx, db, "Alice")
	bob := testutil.SeedUser(t, ctx, db, "Bob")
	room := testutil.SeedListing(t, ctx, db, owner.ID, "Room A")
	first := testutil.SeedThread(t, ctx, db, room, alice.ID, time.Now())
	second := testutil.SeedThread(t, ctx, db, room, bob.ID, time.Now())

	repo := NewChatThreadRepo(db, testutil.Logger(t))
	for want := int64(1); want <= 3; want++ {
		got, err := repo.NextMessageSeq(dbc, first.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := repo.NextMessageSeq(dbc, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	_, err = repo.NextMessageSeq(dbc, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMessageCreateNeedsThreadAndSender(t *testing.T) {
	repo := NewChatMessageRepo(testutil.DB(t), testutil.Logger(t))
	_, err := repo.Create(dbctx.Context{Ctx: context.Background()}, []*types.ChatMessage{{Body: "x"}})
	assert.Error(t, err)
}

func TestMessagePageLimitClamp(t *testing.T) {
	assert.Equal(t, DefaultMessagePage, MessagePage{}.limit())
	assert.Equal(t, DefaultMessagePage, MessagePage{Limit: MaxMessagePage + 1}.limit())
	assert.Equal(t, 7, MessagePage{Limit: 7}.limit())
}
