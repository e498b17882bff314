package recognize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ohaddad/shopsnap/pkg/imaging"
)

// ErrNoUsableImage mirrors the imaging sentinel for callers that only
// import this package.
var ErrNoUsableImage = imaging.ErrNoUsableImage

// ErrEmptyResponse marks a backend reply that normalized to no text.
// The orchestrator advances to the next target without retrying.
var ErrEmptyResponse = errors.New("backend returned an empty reply")

// ExhaustedError reports that every plan target failed. Attempts holds
// the per-target outcomes in plan order for diagnostics; the error text
// is a compact summary safe for logs.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Target, a.Outcome))
	}
	return fmt.Sprintf("all %d recognition targets failed: %s", len(e.Attempts), strings.Join(parts, ", "))
}
