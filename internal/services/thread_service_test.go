package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/roomchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/platform/apierr"
	"github.com/yungbote/roomchat-backend/internal/realtime"
)

func TestAppendMessagePublishesAfterCommit(t *testing.T) {
	ctx := context.Background()
	rec := &recordingEmitter{}
	f := newThreadFixture(t, rec)

	owner := testutil.SeedUser(t, ctx, f.db, "Olive")
	inquirer := testutil.SeedUser(t, ctx, f.db, "Ian")
	listing := testutil.SeedListing(t, ctx, f.db, owner.ID, "Room A")
	thread := testutil.SeedThread(t, ctx, f.db, listing, inquirer.ID, time.Unix(50, 0))

	// Read through the pool, outside the mutation's transaction: only
	// committed rows are visible here.
	var visibleAtPublish []bool
	rec.onEmit = func(msg realtime.SSEMessage) {
		var n int64
		err := f.db.Model(&types.ChatMessage{}).Where("thread_id = ?", thread.ID).Count(&n).Error
		visibleAtPublish = append(visibleAtPublish, err == nil && n == 1)
	}

	f.svc.now = fixedClock(time.Unix(100, 0))
	msg, err := f.svc.AppendMessage(ctx, inquirer.ID, thread.ID, "  is it available?  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "is it available?", msg.Body)

	assert.ElementsMatch(t, []string{
		realtime.InboxChannel(owner.ID),
		realtime.InboxChannel(inquirer.ID),
		realtime.ThreadChannel(thread.ID),
	}, rec.channels())
	require.Len(t, visibleAtPublish, 3)
	for i, ok := range visibleAtPublish {
		assert.True(t, ok, "emit %d ran before the message was committed", i)
	}
}

func TestFailedMutationPublishesNothing(t *testing.T) {
	ctx := context.Background()
	rec := &recordingEmitter{}
	f := newThreadFixture(t, rec)

	owner := testutil.SeedUser(t, ctx, f.db, "Olive")
	inquirer := testutil.SeedUser(t, ctx, f.db, "Ian")
	stranger := testutil.SeedUser(t, ctx, f.db, "Sam")
	listing := testutil.SeedListing(t, ctx, f.db, owner.ID, "Room A")
	thread := testutil.SeedThread(t, ctx, f.db, listing, inquirer.ID, time.Unix(50, 0))

	_, err := f.svc.AppendMessage(ctx, stranger.ID, thread.ID, "hello", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrThreadNotFound))
	assert.Equal(t, 404, apierr.From(err).Status)

	_, err = f.svc.AppendMessage(ctx, inquirer.ID, thread.ID, "   ", nil)
	require.Error(t, err)
	assert.Equal(t, "empty_message", apierr.From(err).Code)

	assert.Empty(t, rec.channels())
}

func TestEndToEndActivityReachesCounterpart(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewSSEHub(testutil.Logger(t), realtime.HubConfig{OutboundBuffer: 8, Heartbeat: time.Hour})
	f := newThreadFixture(t, &HubEmitter{Hub: hub})

	userA := testutil.SeedUser(t, ctx, f.db, "Alice")
	userB := testutil.SeedUser(t, ctx, f.db, "Bob")
	listing := testutil.SeedListing(t, ctx, f.db, userB.ID, "Room A")
	thread := testutil.SeedThread(t, ctx, f.db, listing, userA.ID, time.Unix(50, 0))

	before, err := f.svc.ListThreads(ctx, userB.ID)
	require.NoError(t, err)
	require.Len(t, before, 1)
	unreadBefore := before[0].UnreadCount

	clientB := hub.NewSSEClient(userB.ID)
	defer hub.CloseClient(clientB)
	require.NoError(t, hub.AddChannel(clientB, realtime.InboxChannel(userB.ID)))

	f.svc.now = fixedClock(time.Unix(100, 0))
	_, err = f.svc.AppendMessage(ctx, userA.ID, thread.ID, "hi", nil)
	require.NoError(t, err)

	select {
	case msg := <-clientB.Outbound:
		p, ok := msg.Data.(realtime.ActivityPayload)
		require.True(t, ok)
		require.NotNil(t, p.Scope)
		assert.Equal(t, thread.ID, *p.Scope)
		assert.Equal(t, "chat-activity", p.Kind)
	case <-time.After(time.Second):
		t.Fatal("B did not receive an activity event")
	}

	after, err := f.svc.ListThreads(ctx, userB.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.True(t, after[0].LastMessageAt.Equal(time.Unix(100, 0)), "last message at %v", after[0].LastMessageAt)
	assert.Equal(t, unreadBefore+1, after[0].UnreadCount)
	assert.Equal(t, "hi", after[0].LastMessageText)
}

func TestStartThreadIsIdempotentPerListingAndInquirer(t *testing.T) {
	ctx := context.Background()
	rec := &recordingEmitter{}
	f := newThreadFixture(t, rec)

	owner := testutil.SeedUser(t, ctx, f.db, "Olive")
	inquirer := testutil.SeedUser(t, ctx, f.db, "Ian")
	listing := testutil.SeedListing(t, ctx, f.db, owner.ID, "Room A")

	f.svc.now = fixedClock(time.Unix(200, 0))
	first, msg, err := f.svc.StartThread(ctx, inquirer.ID, listing.ID, "Is the room free?")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, owner.ID, first.OwnerID)

	f.svc.now = fixedClock(time.Unix(300, 0))
	second, _, err := f.svc.StartThread(ctx, inquirer.ID, listing.ID, "Following up")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	threads, err := f.svc.ListThreads(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, 2, threads[0].UnreadCount)
	assert.Equal(t, "Following up", threads[0].LastMessageText)

	_, _, err = f.svc.StartThread(ctx, owner.ID, listing.ID, "talking to myself")
	assert.Equal(t, "own_listing", apierr.From(err).Code)
	_, _, err = f.svc.StartThread(ctx, inquirer.ID, uuid.New(), "hello")
	assert.Equal(t, "listing_not_found", apierr.From(err).Code)
}

func TestDeleteThreadIsPerViewerAndResurfaces(t *testing.T) {
	ctx := context.Background()
	rec := &recordingEmitter{}
	f := newThreadFixture(t, rec)

	owner := testutil.SeedUser(t, ctx, f.db, "Olive")
	inquirer := testutil.SeedUser(t, ctx, f.db, "Ian")
	listing := testutil.SeedListing(t, ctx, f.db, owner.ID, "Room A")
	thread := testutil.SeedThread(t, ctx, f.db, listing, inquirer.ID, time.Unix(50, 0))

	require.NoError(t, f.svc.DeleteThread(ctx, owner.ID, thread.ID))
	assert.ElementsMatch(t, []string{
		realtime.InboxChannel(owner.ID),
		realtime.InboxChannel(inquirer.ID),
	}, rec.channels(), "deletes never reach the thread channel")

	err := f.svc.DeleteThread(ctx, owner.ID, thread.ID)
	assert.True(t, errors.Is(err, ErrThreadNotFound), "second delete is not found")

	ownerList, err := f.svc.ListThreads(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, ownerList)
	inquirerList, err := f.svc.ListThreads(ctx, inquirer.ID)
	require.NoError(t, err)
	assert.Len(t, inquirerList, 1)

	f.svc.now = fixedClock(time.Unix(100, 0))
	_, err = f.svc.AppendMessage(ctx, inquirer.ID, thread.ID, "still there?", nil)
	require.NoError(t, err)
	ownerList, err = f.svc.ListThreads(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, ownerList, 1)
	assert.Equal(t, 1, ownerList[0].UnreadCount)
}

func TestMarkReadClearsUnreadAndPublishes(t *testing.T) {
	ctx := context.Background()
	rec := &recordingEmitter{}
	f := newThreadFixture(t, rec)

	owner := testutil.SeedUser(t, ctx, f.db, "Olive")
	inquirer := testutil.SeedUser(t, ctx, f.db, "Ian")
	listing := testutil.SeedListing(t, ctx, f.db, owner.ID, "Room A")
	thread := testutil.SeedThread(t, ctx, f.db, listing, inquirer.ID, time.Unix(50, 0))

	f.svc.now = fixedClock(time.Unix(100, 0))
	_, err := f.svc.AppendMessage(ctx, inquirer.ID, thread.ID, "one", nil)
	require.NoError(t, err)
	_, err = f.svc.AppendMessage(ctx, inquirer.ID, thread.ID, "two", nil)
	require.NoError(t, err)
	rec.reset()

	require.NoError(t, f.svc.MarkRead(ctx, owner.ID, thread.ID))
	assert.Len(t, rec.channels(), 2)

	list, err := f.svc.ListThreads(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].UnreadCount)

	msgs, err := f.svc.ListMessages(ctx, owner.ID, thread.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Body)

	ok, err := f.svc.IsParticipant(ctx, uuid.New(), thread.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListMessagesKeepsAppendOrderWithinOneInstant(t *testing.T) {
	ctx := context.Background()
	f := newThreadFixture(t, &recordingEmitter{})

	owner := testutil.SeedUser(t, ctx, f.db, "Olive")
	inquirer := testutil.SeedUser(t, ctx, f.db, "Ian")
	listing := testutil.SeedListing(t, ctx, f.db, owner.ID, "Room A")
	thread := testutil.SeedThread(t, ctx, f.db, listing, inquirer.ID, time.Unix(50, 0))

	f.svc.now = fixedClock(time.Unix(100, 0))
	bodies := []string{"m1", "m2", "m3", "m4", "m5"}
	for _, b := range bodies {
		_, err := f.svc.AppendMessage(ctx, inquirer.ID, thread.ID, b, nil)
		require.NoError(t, err)
	}

	all, err := f.svc.ListMessages(ctx, owner.ID, thread.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, len(bodies))
	for i, m := range all {
		assert.Equal(t, bodies[i], m.Body)
		assert.Equal(t, int64(i+1), m.Seq)
	}

	var paged []string
	var before int64
	for {
		page, err := f.svc.ListMessages(ctx, owner.ID, thread.ID, 2, before)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		var got []string
		for _, m := range page {
			got = append(got, m.Body)
		}
		paged = append(got, paged...)
		before = page[0].Seq
	}
	assert.Equal(t, bodies, paged, "paging must not drop messages that share a timestamp")
}

func TestListThreadsOrdering(t *testing.T) {
	ctx := context.Background()
	f := newThreadFixture(t, &recordingEmitter{})

	owner := testutil.SeedUser(t, ctx, f.db, "Olive")
	listing := testutil.SeedListing(t, ctx, f.db, owner.ID, "Room A")
	at := time.Unix(500, 0)
	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		u := testutil.SeedUser(t, ctx, f.db, "Guest")
		ts := at
		if i == 3 {
			ts = at.Add(time.Second)
		}
		ids = append(ids, testutil.SeedThread(t, ctx, f.db, listing, u.ID, ts).ID)
	}

	list, err := f.svc.ListThreads(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, ids[3], list[0].ID, "newest first")
	for i := 1; i < len(list)-1; i++ {
		assert.True(t, list[i].Before(list[i+1]), "ties must be ordered by id")
	}
}
