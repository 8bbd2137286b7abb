// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// ErrAuthDegraded is reported when saved cookies no longer authenticate the session.
var ErrAuthDegraded = errors.New("authenticated session degraded to anonymous mode")

// FetchError aborts a cycle: a results page could not be retrieved.
type FetchError struct {
	Page int
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseWarning describes a listing card that was skipped.
type ParseWarning struct {
	Index  int
	Reason string
}

func (w ParseWarning) Error() string {
	return fmt.Sprintf("card %d skipped: %s", w.Index, w.Reason)
}

// NotifyError is returned when both the rich and the text delivery failed.
type NotifyError struct {
	ListingID string
	RichErr   error
	TextErr   error
}

func (e *NotifyError) Error() string {
	if e.RichErr != nil {
		return fmt.Sprintf("notify listing %s: text delivery failed: %v (rich delivery failed: %v)", e.ListingID, e.TextErr, e.RichErr)
	}
	return fmt.Sprintf("notify listing %s: text delivery failed: %v", e.ListingID, e.TextErr)
}

func (e *NotifyError) Unwrap() error { return e.TextErr }

// PersistError means the state file could not be written. It always propagates.
type PersistError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist state %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
