package download

import (
	"fmt"
	"strings"
)

// FetchError is returned when every source of an item failed. Attempts holds one
// error per source, in order.
type FetchError struct {
	ID       string
	Attempts []error
}

func (e *FetchError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("no source for %s", e.ID)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("failed to fetch %s: %s", e.ID, strings.Join(parts, "; "))
}

// Unwrap exposes the per-source errors.
func (e *FetchError) Unwrap() []error { return e.Attempts }
