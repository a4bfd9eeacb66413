package inbox

import (
	"time"

	"github.com/google/uuid"
)

const DefaultTombstoneTTL = 30 * time.Second

type tombstone struct {
	created time.Time
	expires time.Time
}

// tombstones hide optimistically deleted threads from incoming snapshots.
// A tombstone lives until its ttl passes or a snapshot requested after the
// delete omits the thread. Not safe for concurrent use; the reconciler
// guards it.
type tombstones struct {
	ttl     time.Duration
	entries map[uuid.UUID]tombstone
}

func newTombstones(ttl time.Duration) *tombstones {
	if ttl <= 0 {
		ttl = DefaultTombstoneTTL
	}
	return &tombstones{ttl: ttl, entries: map[uuid.UUID]tombstone{}}
}

func (ts *tombstones) add(id uuid.UUID, now time.Time) {
	ts.entries[id] = tombstone{created: now, expires: now.Add(ts.ttl)}
}

func (ts *tombstones) remove(id uuid.UUID) { delete(ts.entries, id) }

func (ts *tombstones) has(id uuid.UUID, now time.Time) bool {
	e, ok := ts.entries[id]
	return ok && now.Before(e.expires)
}

func (ts *tombstones) len() int { return len(ts.entries) }

// apply drops tombstoned threads from a snapshot requested at issuedAt. A
// tombstone retires when it expires, or when a snapshot requested after it
// was placed no longer contains the thread.
func (ts *tombstones) apply(snapshot []Thread, issuedAt, now time.Time) []Thread {
	if len(ts.entries) == 0 {
		return snapshot
	}
	present := make(map[uuid.UUID]struct{}, len(snapshot))
	for _, t := range snapshot {
		present[t.ID] = struct{}{}
	}
	for id, e := range ts.entries {
		if !now.Before(e.expires) {
			delete(ts.entries, id)
			continue
		}
		if _, ok := present[id]; !ok && !issuedAt.Before(e.created) {
			delete(ts.entries, id)
		}
	}
	out := make([]Thread, 0, len(snapshot))
	for _, t := range snapshot {
		if _, hidden := ts.entries[t.ID]; hidden {
			continue
		}
		out = append(out, t)
	}
	return out
}
