package ctxutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type pendingActivityKey struct{}

// PendingActivity collects the scopes touched by a unit of work so they can be
// announced once the work has committed.
type PendingActivity struct {
	mu    sync.Mutex
	items []ActivityScope
}

type ActivityScope struct {
	ThreadID     uuid.UUID
	Participants []uuid.UUID
	// ThreadChannel is set for mutations that must also reach viewers of the thread.
	ThreadChannel bool
}

func WithPendingActivity(ctx context.Context) (context.Context, *PendingActivity) {
	pa := &PendingActivity{}
	return context.WithValue(Default(ctx), pendingActivityKey{}, pa), pa
}

func GetPendingActivity(ctx context.Context) *PendingActivity {
	if pa, ok := Default(ctx).Value(pendingActivityKey{}).(*PendingActivity); ok {
		return pa
	}
	return nil
}

func (p *PendingActivity) Append(s ActivityScope) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.items = append(p.items, s)
	p.mu.Unlock()
}

// Drain returns everything collected so far and resets the buffer.
func (p *PendingActivity) Drain() []ActivityScope {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.items
	p.items = nil
	return out
}

// Discard drops collected scopes, used when the unit of work rolled back.
func (p *PendingActivity) Discard() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.items = nil
	p.mu.Unlock()
}
