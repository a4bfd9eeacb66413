package inbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

// Fetcher returns the viewer's authoritative thread list.
type Fetcher interface {
	ListThreads(ctx context.Context) ([]Thread, error)
}

type State int

const (
	StateIdle State = iota
	StateFetching
)

func (s State) String() string {
	if s == StateFetching {
		return "fetching"
	}
	return "idle"
}

const snapshotKey = "snapshot"

type Options struct {
	TombstoneTTL time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
	Log          *logger.Logger
	// OnChange receives a copy of the ordered list after every local change.
	OnChange func([]Thread)
	// OnError receives fetch failures. The list is left as it was.
	OnError func(error)
}

// Reconciler owns the local thread list for one viewer session.
//
// Triggers (Notify, Refresh) that arrive while a snapshot request is in
// flight are folded into a single follow-up request, so a burst of activity
// costs at most two round trips and the last trigger is always followed by a
// request issued after it.
type Reconciler struct {
	fetcher      Fetcher
	viewer       uuid.UUID
	log          *logger.Logger
	now          func() time.Time
	fetchTimeout time.Duration
	onChange     func([]Thread)
	onError      func(error)

	sf singleflight.Group

	mu      sync.Mutex
	state   State
	pending bool
	ended   bool
	threads []Thread
	tombs   *tombstones
	reads   map[uuid.UUID]time.Time
	fetches int
	lastErr error
}

func NewReconciler(viewer uuid.UUID, fetcher Fetcher, opts Options) *Reconciler {
	r := &Reconciler{
		fetcher:      fetcher,
		viewer:       viewer,
		log:          opts.Log,
		now:          opts.Now,
		fetchTimeout: opts.FetchTimeout,
		onChange:     opts.OnChange,
		onError:      opts.OnError,
		tombs:        newTombstones(opts.TombstoneTTL),
		reads:        map[uuid.UUID]time.Time{},
	}
	if r.log == nil {
		r.log = logger.NewNop()
	}
	r.log = r.log.With("component", "InboxReconciler", "viewer_id", viewer.String())
	if r.now == nil {
		r.now = time.Now
	}
	if r.fetchTimeout <= 0 {
		r.fetchTimeout = 15 * time.Second
	}
	return r
}

func (r *Reconciler) Viewer() uuid.UUID { return r.viewer }

// Notify asks for fresh state without waiting for it. Activity signals and
// focus changes land here.
func (r *Reconciler) Notify() {
	start, err := r.trigger()
	if err != nil || !start {
		return
	}
	go func() { _, _, _ = r.sf.Do(snapshotKey, r.cycle) }()
}

// Refresh asks for fresh state and waits for a snapshot requested after the
// call. Concurrent callers share one request.
func (r *Reconciler) Refresh(ctx context.Context) ([]Thread, error) {
	if _, err := r.trigger(); err != nil {
		return nil, err
	}
	ch := r.sf.DoChan(snapshotKey, r.cycle)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		list, _ := res.Val.([]Thread)
		return list, nil
	}
}

// trigger reports whether a new request must be started and, if so, moves
// to Fetching before returning so that a burst of triggers starts only one.
// While a request is in flight it only marks a follow-up as pending.
func (r *Reconciler) trigger() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return false, ErrSessionEnded
	}
	if r.state == StateFetching {
		r.pending = true
		return false, nil
	}
	r.state = StateFetching
	return true, nil
}

// cycle runs inside the singleflight call. It keeps fetching while triggers
// arrive and forgets the key before going idle so that the next trigger
// never joins a finished request.
func (r *Reconciler) cycle() (any, error) {
	r.mu.Lock()
	if r.ended {
		r.pending = false
		r.state = StateIdle
		r.sf.Forget(snapshotKey)
		r.mu.Unlock()
		return nil, ErrSessionEnded
	}
	r.state = StateFetching
	r.mu.Unlock()

	for {
		r.mu.Lock()
		r.fetches++
		r.mu.Unlock()

		issuedAt := r.now()
		ctx, cancel := context.WithTimeout(context.Background(), r.fetchTimeout)
		snapshot, fetchErr := r.fetcher.ListThreads(ctx)
		cancel()

		list, err := r.merge(snapshot, fetchErr, issuedAt)
		r.publish(list, err)

		r.mu.Lock()
		if r.pending && !r.ended {
			r.pending = false
			r.mu.Unlock()
			continue
		}
		r.pending = false
		r.state = StateIdle
		r.sf.Forget(snapshotKey)
		r.mu.Unlock()
		return list, err
	}
}

func (r *Reconciler) merge(snapshot []Thread, fetchErr error, issuedAt time.Time) ([]Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return nil, ErrSessionEnded
	}
	if fetchErr != nil {
		err := &FetchError{Err: fetchErr}
		r.lastErr = err
		return cloneThreads(r.threads), err
	}
	list := r.tombs.apply(cloneThreads(snapshot), issuedAt, r.now())
	r.overlayReadsLocked(list)
	Sort(list)
	r.threads = list
	r.lastErr = nil
	return cloneThreads(list), nil
}

// overlayReadsLocked keeps a locally read thread at zero unread until the
// server agrees or a newer message arrives.
func (r *Reconciler) overlayReadsLocked(list []Thread) {
	if len(r.reads) == 0 {
		return
	}
	seen := make(map[uuid.UUID]struct{}, len(list))
	for i := range list {
		t := &list[i]
		seen[t.ID] = struct{}{}
		at, ok := r.reads[t.ID]
		if !ok {
			continue
		}
		if t.UnreadCount == 0 || t.LastMessageAt.After(at) {
			delete(r.reads, t.ID)
			continue
		}
		t.UnreadCount = 0
	}
	for id := range r.reads {
		if _, ok := seen[id]; !ok {
			delete(r.reads, id)
		}
	}
}

func (r *Reconciler) publish(list []Thread, err error) {
	switch {
	case errors.Is(err, ErrSessionEnded):
		r.log.Debug("discarding snapshot after session end")
	case err != nil:
		r.log.Warn("thread list fetch failed", "error", err)
		if r.onError != nil {
			r.onError(err)
		}
	default:
		if r.onChange != nil {
			r.onChange(list)
		}
	}
}

// DeleteLocal hides a thread immediately and keeps it hidden from snapshots
// until the server confirms or the tombstone expires. It reports whether the
// thread was in the list.
func (r *Reconciler) DeleteLocal(id uuid.UUID) bool {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return false
	}
	r.tombs.add(id, r.now())
	delete(r.reads, id)
	found := false
	kept := r.threads[:0:0]
	for _, t := range r.threads {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	r.threads = kept
	list := cloneThreads(kept)
	r.mu.Unlock()

	if r.onChange != nil {
		r.onChange(list)
	}
	return found
}

// RevertDelete lifts the tombstone after a failed server delete and asks for
// fresh state so the thread comes back.
func (r *Reconciler) RevertDelete(id uuid.UUID) {
	r.mu.Lock()
	r.tombs.remove(id)
	r.mu.Unlock()
	r.Notify()
}

// MarkReadLocal zeroes a thread's unread count ahead of the server.
func (r *Reconciler) MarkReadLocal(id uuid.UUID) bool {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return false
	}
	found := false
	for i := range r.threads {
		if r.threads[i].ID == id {
			r.reads[id] = r.threads[i].LastMessageAt
			r.threads[i].UnreadCount = 0
			found = true
			break
		}
	}
	list := cloneThreads(r.threads)
	r.mu.Unlock()

	if found && r.onChange != nil {
		r.onChange(list)
	}
	return found
}

func (r *Reconciler) RevertRead(id uuid.UUID) {
	r.mu.Lock()
	delete(r.reads, id)
	r.mu.Unlock()
	r.Notify()
}

// Close ends the session. A request still in flight finishes but its result
// is dropped.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = true
	r.pending = false
	r.threads = nil
	r.reads = map[uuid.UUID]time.Time{}
}

func (r *Reconciler) Threads() []Thread {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneThreads(r.threads)
}

func (r *Reconciler) Views() []View { return Views(r.viewer, r.Threads()) }

// Search is a pure projection of the current list.
func (r *Reconciler) Search(query string) []View {
	return Views(r.viewer, Filter(r.viewer, r.Threads(), query))
}

func (r *Reconciler) UnreadTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.threads {
		n += t.UnreadCount
	}
	return n
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Fetches counts snapshot requests issued so far.
func (r *Reconciler) Fetches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}

// Err is the last fetch error, cleared by the next successful fetch.
func (r *Reconciler) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Reconciler) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func cloneThreads(in []Thread) []Thread {
	if in == nil {
		return nil
	}
	out := make([]Thread, len(in))
	copy(out, in)
	return out
}
