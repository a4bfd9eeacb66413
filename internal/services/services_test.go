package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/data/repos"
	"github.com/yungbote/roomchat-backend/internal/data/repos/testutil"
	"github.com/yungbote/roomchat-backend/internal/realtime"
)

type recordingEmitter struct {
	mu     sync.Mutex
	msgs   []realtime.SSEMessage
	onEmit func(msg realtime.SSEMessage)
	err    error
}

func (e *recordingEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) error {
	if e.onEmit != nil {
		e.onEmit(msg)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
	return e.err
}

func (e *recordingEmitter) channels() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.msgs))
	for _, m := range e.msgs {
		out = append(out, m.Channel)
	}
	return out
}

func (e *recordingEmitter) reset() {
	e.mu.Lock()
	e.msgs = nil
	e.mu.Unlock()
}

type threadFixture struct {
	db      *gorm.DB
	svc     *threadService
	emitter *recordingEmitter
}

func newThreadFixture(t *testing.T, emit SSEEmitter) *threadFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rec, _ := emit.(*recordingEmitter)
	pub := NewActivityPublisher(log, emit)
	svc := NewThreadService(
		db, log,
		repos.NewListingRepo(db, log),
		repos.NewChatThreadRepo(db, log),
		repos.NewChatThreadMemberRepo(db, log),
		repos.NewChatMessageRepo(db, log),
		pub,
	).(*threadService)
	return &threadFixture{db: db, svc: svc, emitter: rec}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at.UTC() }
}
