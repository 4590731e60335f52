// Package pipeline sequences the six analysis stages over a challenge,
// drives each stage's state machine, merges structured outputs, and reports
// overall success or failure.
package pipeline

import (
	"fmt"

	"github.com/perviz24/innovati-x/internal/types"
)

// ValidationError reports malformed caller input. It is surfaced before any
// state is mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports that a run cannot start from the challenge's current
// overall status. Runs start only from pending or failed, and never while
// another run is active for the same challenge.
type ConflictError struct {
	Status types.ChallengeStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot start analysis while challenge is %s", e.Status)
}

// StoreError reports a failed checkpoint write. A store failure during a
// stage-success write is fatal to the run: the in-memory result cannot be
// considered durable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("checkpoint write failed (%s): %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
