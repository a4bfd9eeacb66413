package inbox

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionEnded is returned for work that finished after Close.
	ErrSessionEnded = errors.New("inbox session ended")
	// ErrPermissionDenied means the viewer refused notifications; push
	// registration is skipped for the rest of the session.
	ErrPermissionDenied = errors.New("notification permission denied")
)

// FetchError wraps a failed snapshot request. The local list is unchanged.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch thread list: %v", e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }
