package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/perviz24/innovati-x/internal/augment"
	"github.com/perviz24/innovati-x/internal/prompts"
	"github.com/perviz24/innovati-x/internal/store"
	"github.com/perviz24/innovati-x/internal/types"
)

const (
	// MinDescriptionLength is the shortest challenge description worth
	// analyzing.
	MinDescriptionLength = 20

	// DefaultRunBudget bounds one full run: up to six sequential generation
	// calls plus one augmentation lookup.
	DefaultRunBudget = 5 * time.Minute

	// DefaultMaxConcurrentRuns caps simultaneous runs across all
	// challenges. Each run holds a model connection for minutes.
	DefaultMaxConcurrentRuns = 4
)

// Generator is the stage-generation contract the runner consumes. It is
// satisfied by *generation.Adapter.
type Generator interface {
	Decomposition(ctx context.Context, prompt string) (*types.Decomposition, error)
	Research(ctx context.Context, prompt string) (*types.Research, error)
	GapAnalysis(ctx context.Context, prompt string) (*types.GapAnalysis, error)
	Innovation(ctx context.Context, prompt string) (*types.Innovation, error)
	Scoring(ctx context.Context, prompt string, produced []types.Methodology) (*types.Scoring, error)
	Patent(ctx context.Context, prompt string) (*types.PatentLandscape, error)
}

// Runner executes analysis runs. All collaborators are injected so tests can
// substitute fakes for the store, the generator, and the augmentor.
type Runner struct {
	store  store.CheckpointStore
	gen    Generator
	aug    augment.Augmentor
	budget time.Duration
	sem    *semaphore.Weighted
	logger *log.Logger

	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

// Option configures a Runner.
type Option func(*Runner)

// WithRunBudget overrides the overall wall-clock budget per run.
func WithRunBudget(d time.Duration) Option {
	return func(r *Runner) { r.budget = d }
}

// WithMaxConcurrentRuns overrides the global concurrent-run cap.
func WithMaxConcurrentRuns(n int64) Option {
	return func(r *Runner) { r.sem = semaphore.NewWeighted(n) }
}

// WithLogger overrides the runner's logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner.
func NewRunner(checkpoints store.CheckpointStore, gen Generator, aug augment.Augmentor, opts ...Option) *Runner {
	r := &Runner{
		store:  checkpoints,
		gen:    gen,
		aug:    aug,
		budget: DefaultRunBudget,
		sem:    semaphore.NewWeighted(DefaultMaxConcurrentRuns),
		logger: log.Default(),
		active: make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the full six-stage pipeline against one challenge. It returns
// nil when every stage completed and the challenge is marked completed.
//
// A run starts only from overall status pending or failed; a failed run is
// retried from stage one, never resumed mid-pipeline. At most one run may be
// active per challenge at a time.
func (r *Runner) Run(ctx context.Context, challengeID, ownerID uuid.UUID, description string) error {
	if challengeID == uuid.Nil {
		return &ValidationError{Field: "challengeId", Message: "missing challenge identifier"}
	}
	if ownerID == uuid.Nil {
		return &ValidationError{Field: "owner", Message: "missing owner identity"}
	}
	if len(strings.TrimSpace(description)) < MinDescriptionLength {
		return &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("description must be at least %d characters", MinDescriptionLength),
		}
	}

	if !r.acquire(challengeID) {
		return &ConflictError{Status: types.ChallengeAnalyzing}
	}
	defer r.release(challengeID)

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for run slot: %w", err)
	}
	defer r.sem.Release(1)

	challenge, err := r.store.GetChallenge(ctx, challengeID, ownerID)
	if err != nil {
		return err
	}
	if challenge.Status != types.ChallengePending && challenge.Status != types.ChallengeFailed {
		return &ConflictError{Status: challenge.Status}
	}

	// The whole run shares one wall-clock budget; an expired budget surfaces
	// as a timeout failure at whichever stage is in flight. Failure-path
	// checkpoint writes use the uncancelled parent so a blown budget cannot
	// also suppress the Failed markers.
	runCtx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()
	persistCtx := context.WithoutCancel(ctx)

	if err := r.store.SetOverallStatus(runCtx, challengeID, ownerID, types.ChallengeAnalyzing); err != nil {
		return &StoreError{Op: "set status analyzing", Err: err}
	}

	return r.runStages(runCtx, persistCtx, challengeID, ownerID, description)
}

// runStages executes the six stages in fixed order, carrying each validated
// output forward as context for later prompts.
func (r *Runner) runStages(ctx, persistCtx context.Context, id, owner uuid.UUID, description string) error {
	// Stage 1: Decomposition.
	decomposition, err := runStage(r, ctx, persistCtx, id, owner, types.StageDecomposition,
		func(ctx context.Context) (*types.Decomposition, error) {
			return r.gen.Decomposition(ctx, prompts.Decomposition(description))
		})
	if err != nil {
		return err
	}

	// Stage 2: Research, optionally enriched with web-search context.
	research, err := runStage(r, ctx, persistCtx, id, owner, types.StageResearch,
		func(ctx context.Context) (*types.Research, error) {
			searchContext := r.aug.Augment(ctx, description+" solutions approaches")
			return r.gen.Research(ctx, prompts.Research(description, indentJSON(decomposition), searchContext))
		})
	if err != nil {
		return err
	}

	// Stage 3: Gap analysis over the research stage's existing solutions.
	gaps, err := runStage(r, ctx, persistCtx, id, owner, types.StageGapAnalysis,
		func(ctx context.Context) (*types.GapAnalysis, error) {
			return r.gen.GapAnalysis(ctx, prompts.GapAnalysis(description, indentJSON(research.ExistingSolutions)))
		})
	if err != nil {
		return err
	}

	// Stage 4: Innovation generation, one solution per methodology. The
	// payload persisted for this stage is the solution list itself.
	solutions, err := runStage(r, ctx, persistCtx, id, owner, types.StageInnovation,
		func(ctx context.Context) ([]types.Solution, error) {
			innovation, err := r.gen.Innovation(ctx, prompts.Innovation(description, indentJSON(gaps)))
			if err != nil {
				return nil, err
			}
			return innovation.Solutions, nil
		})
	if err != nil {
		return err
	}

	// The scoring and patent stages consume the same condensed summary.
	summary := prompts.SolutionsSummary(solutions)
	produced := make([]types.Methodology, 0, len(solutions))
	for _, sol := range solutions {
		produced = append(produced, sol.Methodology)
	}

	// Stage 5: Scoring.
	scoring, err := runStage(r, ctx, persistCtx, id, owner, types.StageScoring,
		func(ctx context.Context) (*types.Scoring, error) {
			return r.gen.Scoring(ctx, prompts.Scoring(description, summary), produced)
		})
	if err != nil {
		return err
	}

	// Join scores onto the solutions by methodology and re-persist the
	// innovation payload. Scores live on solutions, not as a separate
	// top-level entity. Solutions without a scoring entry keep an empty
	// score slot.
	scored := attachScores(solutions, scoring)
	if err := r.store.PatchStage(ctx, id, owner, types.StageInnovation, types.StageCompleted, scored); err != nil {
		r.markFailed(persistCtx, id, owner)
		return &StoreError{Op: "persist scored solutions", Err: err}
	}

	// Stage 6: Patent landscape.
	if _, err := runStage(r, ctx, persistCtx, id, owner, types.StagePatent,
		func(ctx context.Context) (*types.PatentLandscape, error) {
			return r.gen.Patent(ctx, prompts.Patent(description, summary))
		}); err != nil {
		return err
	}

	if err := r.store.SetOverallStatus(ctx, id, owner, types.ChallengeCompleted); err != nil {
		r.markFailed(persistCtx, id, owner)
		return &StoreError{Op: "set status completed", Err: err}
	}
	return nil
}

// runStage drives one stage through its state machine: Running is persisted
// before the generation call so progress is observable mid-call, and
// Completed is persisted together with the payload in one write. On any
// failure the stage and the overall run are marked Failed and remaining
// stages are never touched.
func runStage[T any](r *Runner, ctx, persistCtx context.Context, id, owner uuid.UUID, stage types.Stage, call func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := r.store.PatchStage(ctx, id, owner, stage, types.StageRunning, nil); err != nil {
		r.markFailed(persistCtx, id, owner)
		return zero, &StoreError{Op: fmt.Sprintf("mark %s running", stage), Err: err}
	}

	out, err := call(ctx)
	if err != nil {
		if patchErr := r.store.PatchStage(persistCtx, id, owner, stage, types.StageFailed, nil); patchErr != nil {
			r.logger.Printf("pipeline: failed to mark stage %s failed for challenge %s: %v", stage, id, patchErr)
		}
		r.markFailed(persistCtx, id, owner)
		return zero, err
	}

	if err := r.store.PatchStage(ctx, id, owner, stage, types.StageCompleted, out); err != nil {
		r.markFailed(persistCtx, id, owner)
		return zero, &StoreError{Op: fmt.Sprintf("persist %s payload", stage), Err: err}
	}
	return out, nil
}

// markFailed is the best-effort transition to overall Failed. The write is
// always attempted; its failure is logged and never re-raised, because the
// stage-level failure already carries the authoritative signal.
func (r *Runner) markFailed(ctx context.Context, id, owner uuid.UUID) {
	if err := r.store.SetOverallStatus(ctx, id, owner, types.ChallengeFailed); err != nil {
		r.logger.Printf("pipeline: failed to mark challenge %s failed: %v", id, err)
	}
}

// attachScores joins scoring entries onto solutions keyed by methodology.
// The solutions' tags are never altered; entries without a match on either
// side are left alone (solutions keep nil scores).
func attachScores(solutions []types.Solution, scoring *types.Scoring) []types.Solution {
	byTag := make(map[types.Methodology]types.ScoreDimensions, len(scoring.ScoredSolutions))
	for _, entry := range scoring.ScoredSolutions {
		byTag[entry.Methodology] = entry.Scores
	}

	out := make([]types.Solution, len(solutions))
	copy(out, solutions)
	for i := range out {
		if scores, ok := byTag[out[i].Methodology]; ok {
			s := scores
			out[i].Scores = &s
		}
	}
	return out
}

// acquire registers the challenge as having an active run. It reports false
// when a run is already active for the identifier.
func (r *Runner) acquire(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.active[id]; exists {
		return false
	}
	r.active[id] = struct{}{}
	return true
}

func (r *Runner) release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

// indentJSON serializes prior stage output as readable prompt context.
func indentJSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(raw)
}
