package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	result  []Thread
	err     error
	gate    chan struct{}
	started chan int
}

func newFakeFetcher(result ...Thread) *fakeFetcher {
	return &fakeFetcher{result: result, started: make(chan int, 64)}
}

func (f *fakeFetcher) ListThreads(ctx context.Context) ([]Thread, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	res := cloneThreads(f.result)
	err := f.err
	gate := f.gate
	f.mu.Unlock()

	f.started <- n
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res, err
}

func (f *fakeFetcher) set(result []Thread, err error) {
	f.mu.Lock()
	f.result = result
	f.err = err
	f.mu.Unlock()
}

func (f *fakeFetcher) hold() chan struct{} {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
	return gate
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func waitStarted(t *testing.T, f *fakeFetcher) int {
	t.Helper()
	select {
	case n := <-f.started:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("fetch never started")
		return 0
	}
}

func waitIdle(t *testing.T, r *Reconciler) {
	t.Helper()
	require.Eventually(t, func() bool { return r.State() == StateIdle }, 2*time.Second, 5*time.Millisecond)
}

func ids(list []Thread) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(list))
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}

func TestReconcilerCoalescesBurstIntoOneFollowUp(t *testing.T) {
	f := newFakeFetcher(sampleThread("00000000-0000-0000-0000-000000000001", 100))
	r := NewReconciler(inquirerID, f, Options{})
	gate := f.hold()

	r.Notify()
	waitStarted(t, f)
	require.Equal(t, StateFetching, r.State())

	for i := 0; i < 10; i++ {
		r.Notify()
	}
	close(gate)

	waitIdle(t, r)
	assert.Equal(t, 2, f.Calls())
	assert.Equal(t, 2, r.Fetches())
	assert.Len(t, r.Threads(), 1)
}

func TestReconcilerNotifyMarksFetchingBeforeReturning(t *testing.T) {
	f := newFakeFetcher()
	r := NewReconciler(inquirerID, f, Options{})
	gate := f.hold()

	r.Notify()
	assert.Equal(t, StateFetching, r.State(), "state flips before the fetch goroutine runs")
	for i := 0; i < 50; i++ {
		r.Notify()
	}
	r.mu.Lock()
	assert.True(t, r.pending)
	r.mu.Unlock()

	close(gate)
	waitIdle(t, r)
	assert.Equal(t, 2, f.Calls())
}

func TestReconcilerNoFollowUpWithoutTrigger(t *testing.T) {
	f := newFakeFetcher()
	r := NewReconciler(inquirerID, f, Options{})

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.Calls())
	assert.Equal(t, StateIdle, r.State())
}

func TestRefreshObservesStateAfterTheCall(t *testing.T) {
	oldT := sampleThread("00000000-0000-0000-0000-000000000001", 100)
	newT := oldT
	newT.LastMessageAt = time.Unix(200, 0).UTC()
	newT.UnreadCount = 1

	f := newFakeFetcher(oldT)
	r := NewReconciler(inquirerID, f, Options{})
	gate := f.hold()

	r.Notify()
	waitStarted(t, f)
	f.set([]Thread{newT}, nil)

	done := make(chan []Thread, 1)
	go func() {
		list, err := r.Refresh(context.Background())
		assert.NoError(t, err)
		done <- list
	}()
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.pending
	}, 2*time.Second, time.Millisecond)
	close(gate)

	select {
	case list := <-done:
		require.Len(t, list, 1)
		assert.Equal(t, 1, list[0].UnreadCount)
		assert.True(t, list[0].LastMessageAt.Equal(newT.LastMessageAt))
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not return")
	}
}

func TestReconcilerSortsSnapshot(t *testing.T) {
	a := sampleThread("00000000-0000-0000-0000-000000000002", 100)
	b := sampleThread("00000000-0000-0000-0000-000000000001", 100)
	c := sampleThread("00000000-0000-0000-0000-000000000003", 500)
	f := newFakeFetcher(a, b, c)
	r := NewReconciler(ownerID, f, Options{})

	list, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID, b.ID, a.ID}, ids(list))

	views := r.Views()
	require.Len(t, views, 3)
	assert.Equal(t, "Ivan", views[0].Title)
	assert.Equal(t, "Listing: Room A", views[0].Subtitle)
}

func TestOptimisticDeleteSurvivesStaleSnapshot(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10_000, 0)}
	a := sampleThread("00000000-0000-0000-0000-000000000001", 100)
	b := sampleThread("00000000-0000-0000-0000-000000000002", 200)
	f := newFakeFetcher(a, b)

	var changes [][]Thread
	var mu sync.Mutex
	r := NewReconciler(inquirerID, f, Options{
		Now:          clock.Now,
		TombstoneTTL: 30 * time.Second,
		OnChange: func(list []Thread) {
			mu.Lock()
			changes = append(changes, list)
			mu.Unlock()
		},
	})
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	require.True(t, r.DeleteLocal(a.ID))
	assert.Equal(t, []uuid.UUID{b.ID}, ids(r.Threads()))

	// the server has not applied the delete yet
	clock.Advance(5 * time.Second)
	list, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, ids(list))

	// past the ttl the server's view wins
	clock.Advance(30 * time.Second)
	list, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, ids(list))

	mu.Lock()
	assert.Len(t, changes, 4)
	mu.Unlock()
}

func TestOptimisticDeleteConfirmedBySnapshot(t *testing.T) {
	clock := &fakeClock{now: time.Unix(10_000, 0)}
	a := sampleThread("00000000-0000-0000-0000-000000000001", 100)
	f := newFakeFetcher(a)
	r := NewReconciler(inquirerID, f, Options{Now: clock.Now})
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	r.DeleteLocal(a.ID)
	f.set(nil, nil)
	clock.Advance(time.Second)
	_, err = r.Refresh(context.Background())
	require.NoError(t, err)

	// a new message resurfaces the thread server-side
	a.LastMessageAt = time.Unix(300, 0).UTC()
	a.UnreadCount = 1
	f.set([]Thread{a}, nil)
	clock.Advance(time.Second)
	list, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, ids(list))
}

func TestFetchErrorKeepsList(t *testing.T) {
	a := sampleThread("00000000-0000-0000-0000-000000000001", 100)
	f := newFakeFetcher(a)
	var gotErr error
	r := NewReconciler(inquirerID, f, Options{OnError: func(err error) { gotErr = err }})
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	boom := errors.New("offline")
	f.set(nil, boom)
	_, err = r.Refresh(context.Background())
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, gotErr, boom)
	assert.Equal(t, []uuid.UUID{a.ID}, ids(r.Threads()))
	assert.Error(t, r.Err())
	assert.Equal(t, StateIdle, r.State())

	f.set([]Thread{a}, nil)
	_, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.NoError(t, r.Err())
}

func TestReadOverlayUntilServerAgrees(t *testing.T) {
	a := sampleThread("00000000-0000-0000-0000-000000000001", 100)
	a.UnreadCount = 3
	f := newFakeFetcher(a)
	r := NewReconciler(inquirerID, f, Options{})
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, r.UnreadTotal())

	require.True(t, r.MarkReadLocal(a.ID))
	assert.Equal(t, 0, r.UnreadTotal())

	list, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, list[0].UnreadCount, "stale unread count is masked")

	newer := a
	newer.LastMessageAt = time.Unix(200, 0).UTC()
	newer.UnreadCount = 1
	f.set([]Thread{newer}, nil)
	list, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, list[0].UnreadCount, "a newer message counts again")
}

func TestCloseDiscardsInFlightResult(t *testing.T) {
	a := sampleThread("00000000-0000-0000-0000-000000000001", 100)
	f := newFakeFetcher(a)
	changed := 0
	var mu sync.Mutex
	r := NewReconciler(inquirerID, f, Options{OnChange: func([]Thread) {
		mu.Lock()
		changed++
		mu.Unlock()
	}})
	gate := f.hold()

	r.Notify()
	waitStarted(t, f)
	r.Close()
	close(gate)
	waitIdle(t, r)

	assert.Empty(t, r.Threads())
	mu.Lock()
	assert.Equal(t, 0, changed)
	mu.Unlock()

	_, err := r.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.False(t, r.DeleteLocal(a.ID))
	assert.True(t, r.Ended())
	assert.Equal(t, 1, f.Calls())
}

func TestRefreshHonoursCallerContext(t *testing.T) {
	f := newFakeFetcher()
	r := NewReconciler(inquirerID, f, Options{})
	gate := f.hold()
	defer close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Refresh(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
