package recognize

import "time"

// Outcome classifies how a single plan target ended.
type Outcome string

const (
	// OutcomeSuccess means the target produced non-empty text.
	OutcomeSuccess Outcome = "success"

	// OutcomeEmpty means the backend answered but the reply normalized
	// to no text. Never retried.
	OutcomeEmpty Outcome = "empty"

	// OutcomeTransient means the target kept failing transiently until
	// its attempt budget ran out.
	OutcomeTransient Outcome = "transient"

	// OutcomePermanent means the target failed in a way retrying cannot
	// fix (auth, malformed request, cancellation).
	OutcomePermanent Outcome = "permanent"

	// OutcomeSkipped means the target was never invoked, e.g. a
	// url-mode target with no published URL available.
	OutcomeSkipped Outcome = "skipped"
)

// Attempt records the outcome of one plan target.
type Attempt struct {
	Target  Target
	Outcome Outcome
	Tries   int // backend calls made for this target, including retries
	Elapsed time.Duration
	Err     error // nil on success
}

// Result is a successful recognition.
type Result struct {
	// Text is the normalized, non-empty backend reply.
	Text string

	// Target is the plan entry that produced Text.
	Target Target

	// Attempts holds every target tried, in plan order, ending with the
	// successful one.
	Attempts []Attempt

	// Elapsed is the end-to-end pipeline duration, image preparation
	// included.
	Elapsed time.Duration
}
