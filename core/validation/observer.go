package validation

import "time"

// Outcome classifies one completed evaluation.
type Outcome string

const (
	// OutcomeConform means the value satisfied every constraint.
	OutcomeConform Outcome = "conform"

	// OutcomeViolation means at least one diagnostic was produced.
	OutcomeViolation Outcome = "violation"

	// OutcomeAborted means the call terminated before producing a
	// verdict, currently only on a depth overrun.
	OutcomeAborted Outcome = "aborted"
)

// Observer receives the result of every evaluation. Implementations must
// be safe for concurrent use when the engine is shared.
type Observer interface {
	ObserveValidation(outcome Outcome, diagnostics int, elapsed time.Duration)
}
