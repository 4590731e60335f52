// Package generation invokes the external reasoning model with a stage's
// prompt and validates the structured response against the stage schema. It
// is a single-attempt, fail-fast primitive: retry policy belongs to callers.
package generation

import (
	"errors"
	"fmt"

	"github.com/perviz24/innovati-x/internal/types"
)

// Reason classifies why a generation call failed.
type Reason string

// Generation failure reasons.
const (
	// ReasonProviderUnavailable covers network, auth, and rate-limit
	// failures reaching the model provider.
	ReasonProviderUnavailable Reason = "provider_unavailable"
	// ReasonSchemaValidationFailed means the provider answered but the
	// response did not match the stage schema.
	ReasonSchemaValidationFailed Reason = "schema_validation_failed"
	// ReasonTimeout means the call exceeded its deadline.
	ReasonTimeout Reason = "timeout"
)

// GenerationError reports a failed generation call for one stage.
type GenerationError struct {
	Stage  types.Stage
	Reason Reason
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for stage %s (%s): %v", e.Stage, e.Reason, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// AsGenerationError unwraps err to a *GenerationError if one is present.
func AsGenerationError(err error) (*GenerationError, bool) {
	var genErr *GenerationError
	ok := errors.As(err, &genErr)
	return genErr, ok
}
