package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/perviz24/innovati-x/internal/llm"
	"github.com/perviz24/innovati-x/internal/schemas"
	"github.com/perviz24/innovati-x/internal/types"
)

// DefaultCallTimeout bounds a single generation call. The deep analysis
// stages routinely take tens of seconds on reasoning models.
const DefaultCallTimeout = 90 * time.Second

// Adapter turns (stage, prompt) into a schema-validated stage payload using
// the configured reasoning model.
type Adapter struct {
	client      llm.Client
	tier        llm.ModelTier
	callTimeout time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTier selects the model tier used for generation calls.
func WithTier(tier llm.ModelTier) Option {
	return func(a *Adapter) { a.tier = tier }
}

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.callTimeout = d }
}

// NewAdapter creates an Adapter on top of an LLM client.
func NewAdapter(client llm.Client, opts ...Option) *Adapter {
	a := &Adapter{
		client:      client,
		tier:        llm.TierAdvanced,
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate makes exactly one model call for the named stage and returns the
// raw response after schema validation. Failures are always reported as a
// *GenerationError so callers can isolate them to the stage in flight.
func (a *Adapter) Generate(ctx context.Context, stage types.Stage, prompt string) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	raw, err := a.client.GenerateJSON(callCtx, prompt, a.tier)
	if err != nil {
		reason := ReasonProviderUnavailable
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil || ctx.Err() != nil {
			reason = ReasonTimeout
		}
		return nil, &GenerationError{Stage: stage, Reason: reason, Err: err}
	}

	document := []byte(raw)
	if err := schemas.ValidateStage(stage, document); err != nil {
		return nil, &GenerationError{Stage: stage, Reason: ReasonSchemaValidationFailed, Err: err}
	}
	return document, nil
}

// Decomposition runs the stage 1 call.
func (a *Adapter) Decomposition(ctx context.Context, prompt string) (*types.Decomposition, error) {
	var out types.Decomposition
	if err := a.generateInto(ctx, types.StageDecomposition, prompt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Research runs the stage 2 call.
func (a *Adapter) Research(ctx context.Context, prompt string) (*types.Research, error) {
	var out types.Research
	if err := a.generateInto(ctx, types.StageResearch, prompt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GapAnalysis runs the stage 3 call.
func (a *Adapter) GapAnalysis(ctx context.Context, prompt string) (*types.GapAnalysis, error) {
	var out types.GapAnalysis
	if err := a.generateInto(ctx, types.StageGapAnalysis, prompt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Innovation runs the stage 4 call. Beyond the schema, the result must carry
// exactly one solution per methodology tag.
func (a *Adapter) Innovation(ctx context.Context, prompt string) (*types.Innovation, error) {
	var out types.Innovation
	if err := a.generateInto(ctx, types.StageInnovation, prompt, &out); err != nil {
		return nil, err
	}

	seen := make(map[types.Methodology]bool, len(out.Solutions))
	for _, sol := range out.Solutions {
		if seen[sol.Methodology] {
			return nil, &GenerationError{
				Stage:  types.StageInnovation,
				Reason: ReasonSchemaValidationFailed,
				Err:    fmt.Errorf("duplicate solution for methodology %s", sol.Methodology),
			}
		}
		seen[sol.Methodology] = true
	}
	for _, m := range types.Methodologies {
		if !seen[m] {
			return nil, &GenerationError{
				Stage:  types.StageInnovation,
				Reason: ReasonSchemaValidationFailed,
				Err:    fmt.Errorf("no solution for methodology %s", m),
			}
		}
	}
	return &out, nil
}

// Scoring runs the stage 5 call. Every scoring entry must reference a
// methodology that actually produced a solution, and no methodology may be
// scored twice. Entries may be missing: the join simply leaves those score
// slots empty.
func (a *Adapter) Scoring(ctx context.Context, prompt string, produced []types.Methodology) (*types.Scoring, error) {
	var out types.Scoring
	if err := a.generateInto(ctx, types.StageScoring, prompt, &out); err != nil {
		return nil, err
	}

	known := make(map[types.Methodology]bool, len(produced))
	for _, m := range produced {
		known[m] = true
	}
	scored := make(map[types.Methodology]bool, len(out.ScoredSolutions))
	for _, entry := range out.ScoredSolutions {
		if !known[entry.Methodology] {
			return nil, &GenerationError{
				Stage:  types.StageScoring,
				Reason: ReasonSchemaValidationFailed,
				Err:    fmt.Errorf("scoring references methodology %s with no generated solution", entry.Methodology),
			}
		}
		if scored[entry.Methodology] {
			return nil, &GenerationError{
				Stage:  types.StageScoring,
				Reason: ReasonSchemaValidationFailed,
				Err:    fmt.Errorf("duplicate scoring entry for methodology %s", entry.Methodology),
			}
		}
		scored[entry.Methodology] = true
	}
	return &out, nil
}

// Patent runs the stage 6 call.
func (a *Adapter) Patent(ctx context.Context, prompt string) (*types.PatentLandscape, error) {
	var out types.PatentLandscape
	if err := a.generateInto(ctx, types.StagePatent, prompt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// generateInto runs Generate and unmarshals the validated document.
func (a *Adapter) generateInto(ctx context.Context, stage types.Stage, prompt string, out any) error {
	raw, err := a.Generate(ctx, stage, prompt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// Validated JSON that still fails to decode means the Go types and
		// the schema have drifted apart.
		return &GenerationError{Stage: stage, Reason: ReasonSchemaValidationFailed, Err: err}
	}
	return nil
}
