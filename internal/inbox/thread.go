// Package inbox is the client side of inbox sync. It keeps a local, ordered
// copy of the viewer's thread list and reconciles it with server snapshots,
// pushed activity signals and the viewer's own optimistic edits.
package inbox

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Thread mirrors one row of the server's thread list snapshot.
type Thread struct {
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

// Role is the viewer's side of a thread.
type Role int

const (
	RoleInquirer Role = iota
	RoleOwner
)

func RoleOf(viewer uuid.UUID, t Thread) Role {
	if viewer == t.OwnerID {
		return RoleOwner
	}
	return RoleInquirer
}

// CounterpartName is the display name of the other participant.
func CounterpartName(viewer uuid.UUID, t Thread) string {
	if RoleOf(viewer, t) == RoleOwner {
		return t.InquirerName
	}
	return t.OwnerName
}

// Display is what a list row shows for a thread.
type Display struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// DisplayFor is the role-aware title rule. The owner sees who is asking; the
// inquirer sees which listing they asked about.
func DisplayFor(viewer uuid.UUID, t Thread) Display {
	if RoleOf(viewer, t) == RoleOwner {
		return Display{Title: t.InquirerName, Subtitle: "Listing: " + t.ListingTitle}
	}
	return Display{Title: t.ListingTitle, Subtitle: "From: " + t.OwnerName}
}

// View pairs a thread with its rendered display.
type View struct {
	Thread
	Display
}

func Views(viewer uuid.UUID, threads []Thread) []View {
	out := make([]View, 0, len(threads))
	for _, t := range threads {
		out = append(out, View{Thread: t, Display: DisplayFor(viewer, t)})
	}
	return out
}

// Less orders by last message time descending, then id ascending. It does
// not depend on the viewer.
func Less(a, b Thread) bool {
	if !a.LastMessageAt.Equal(b.LastMessageAt) {
		return a.LastMessageAt.After(b.LastMessageAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

func Sort(threads []Thread) {
	sort.SliceStable(threads, func(i, j int) bool { return Less(threads[i], threads[j]) })
}
