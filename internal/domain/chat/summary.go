package chat

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ThreadSummary is the per-viewer projection returned by the thread list
// snapshot. It is what clients mirror locally.
type ThreadSummary struct {
	ID              uuid.UUID `json:"id"`
	ListingID       uuid.UUID `json:"listing_id"`
	ListingTitle    string    `json:"listing_title"`
	OwnerID         uuid.UUID `json:"owner_id"`
	OwnerName       string    `json:"owner_name"`
	InquirerID      uuid.UUID `json:"inquirer_id"`
	InquirerName    string    `json:"inquirer_name"`
	LastMessageText string    `json:"last_message_text"`
	LastMessageAt   time.Time `json:"last_message_at"`
	UnreadCount     int       `json:"unread_count"`
}

// Before reports whether s sorts ahead of o in a thread list: newest last
// message first, ties by ascending id.
func (s *ThreadSummary) Before(o *ThreadSummary) bool {
	if !s.LastMessageAt.Equal(o.LastMessageAt) {
		return s.LastMessageAt.After(o.LastMessageAt)
	}
	return bytes.Compare(s.ID[:], o.ID[:]) < 0
}

// SortSummaries orders rows in place by Before.
func SortSummaries(rows []*ThreadSummary) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Before(rows[j]) })
}
