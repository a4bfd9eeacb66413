package inbox

import (
	"strings"

	"github.com/google/uuid"
)

// Filter keeps threads whose listing title or counterpart name contains
// query, case-insensitively. An empty query keeps everything. The input is
// not modified and order is preserved.
func Filter(viewer uuid.UUID, threads []Thread, query string) []Thread {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Thread, 0, len(threads))
	for _, t := range threads {
		if q == "" ||
			strings.Contains(strings.ToLower(t.ListingTitle), q) ||
			strings.Contains(strings.ToLower(CounterpartName(viewer, t)), q) {
			out = append(out, t)
		}
	}
	return out
}
