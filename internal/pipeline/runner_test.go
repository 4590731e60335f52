package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perviz24/innovati-x/internal/store"
	"github.com/perviz24/innovati-x/internal/types"
)

// write records one store mutation in the order it happened.
type write struct {
	kind    string // "status" or "stage"
	status  types.ChallengeStatus
	stage   types.Stage
	state   types.StageStatus
	payload any
}

// fakeStore is an in-memory CheckpointStore that records every mutation.
type fakeStore struct {
	mu        sync.Mutex
	challenge *types.Challenge
	writes    []write

	getErr    error
	statusErr error
	// stageErrs injects an error for a specific stage and state transition.
	stageErrs map[string]error
}

func newFakeStore(status types.ChallengeStatus) *fakeStore {
	return &fakeStore{
		challenge: &types.Challenge{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			Title:       "Untitled Challenge",
			Description: strings.Repeat("water scarcity ", 3),
			Status:      status,
			Stages:      types.NewStageMap(),
		},
		stageErrs: make(map[string]error),
	}
}

func stageKey(stage types.Stage, state types.StageStatus) string {
	return string(stage) + "/" + string(state)
}

func (s *fakeStore) CreateChallenge(context.Context, uuid.UUID, string, string) (uuid.UUID, error) {
	return uuid.Nil, errors.New("not implemented")
}

func (s *fakeStore) GetChallenge(_ context.Context, id, ownerID uuid.UUID) (*types.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	if id != s.challenge.ID || ownerID != s.challenge.UserID {
		return nil, store.ErrNotFound
	}
	c := *s.challenge
	return &c, nil
}

func (s *fakeStore) ListChallenges(context.Context, uuid.UUID) ([]types.Challenge, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) DeleteChallenge(context.Context, uuid.UUID, uuid.UUID) error {
	return errors.New("not implemented")
}

func (s *fakeStore) SetOverallStatus(_ context.Context, id, ownerID uuid.UUID, status types.ChallengeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return s.statusErr
	}
	if id != s.challenge.ID || ownerID != s.challenge.UserID {
		return store.ErrNotFound
	}
	s.challenge.Status = status
	s.writes = append(s.writes, write{kind: "status", status: status})
	return nil
}

func (s *fakeStore) PatchStage(_ context.Context, id, ownerID uuid.UUID, stage types.Stage, state types.StageStatus, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.stageErrs[stageKey(stage, state)]; err != nil {
		return err
	}
	if id != s.challenge.ID || ownerID != s.challenge.UserID {
		return store.ErrNotFound
	}
	if !types.ValidStage(stage) {
		return store.ErrUnknownStage
	}
	s.challenge.Stages[stage] = state
	s.writes = append(s.writes, write{kind: "stage", stage: stage, state: state, payload: payload})
	return nil
}

// snapshot copies the ordered write log.
func (s *fakeStore) snapshot() []write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]write, len(s.writes))
	copy(out, s.writes)
	return out
}

// fakeGenerator returns canned payloads per stage and can fail one stage.
type fakeGenerator struct {
	mu       sync.Mutex
	failAt   types.Stage
	failWith error
	calls    []types.Stage
	prompts  map[types.Stage]string
	// block makes the failing stage wait on ctx before returning; entered
	// is closed once that stage has started.
	block   bool
	entered chan struct{}
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		prompts: make(map[types.Stage]string),
		entered: make(chan struct{}),
	}
}

func (g *fakeGenerator) record(ctx context.Context, stage types.Stage, prompt string) error {
	g.mu.Lock()
	g.calls = append(g.calls, stage)
	g.prompts[stage] = prompt
	fail := g.failAt == stage
	block := g.block
	g.mu.Unlock()
	if fail {
		if block {
			close(g.entered)
			<-ctx.Done()
			return ctx.Err()
		}
		return g.failWith
	}
	return nil
}

func (g *fakeGenerator) Decomposition(ctx context.Context, prompt string) (*types.Decomposition, error) {
	if err := g.record(ctx, types.StageDecomposition, prompt); err != nil {
		return nil, err
	}
	return &types.Decomposition{Components: []string{"supply"}}, nil
}

func (g *fakeGenerator) Research(ctx context.Context, prompt string) (*types.Research, error) {
	if err := g.record(ctx, types.StageResearch, prompt); err != nil {
		return nil, err
	}
	return &types.Research{
		ExistingSolutions: []types.ExistingSolution{{Title: "desalination", Description: "d", Source: "s"}},
	}, nil
}

func (g *fakeGenerator) GapAnalysis(ctx context.Context, prompt string) (*types.GapAnalysis, error) {
	if err := g.record(ctx, types.StageGapAnalysis, prompt); err != nil {
		return nil, err
	}
	return &types.GapAnalysis{Gaps: []types.Gap{{Area: "cost", Description: "d", Opportunity: "o"}}}, nil
}

func (g *fakeGenerator) Innovation(ctx context.Context, prompt string) (*types.Innovation, error) {
	if err := g.record(ctx, types.StageInnovation, prompt); err != nil {
		return nil, err
	}
	solutions := make([]types.Solution, 0, len(types.Methodologies))
	for _, m := range types.Methodologies {
		solutions = append(solutions, types.Solution{
			Methodology: m,
			Title:       fmt.Sprintf("%s solution", m),
			Description: "d",
			KeyInsights: []string{"k"},
		})
	}
	return &types.Innovation{Solutions: solutions}, nil
}

func (g *fakeGenerator) Scoring(ctx context.Context, prompt string, produced []types.Methodology) (*types.Scoring, error) {
	if err := g.record(ctx, types.StageScoring, prompt); err != nil {
		return nil, err
	}
	scored := make([]types.ScoredSolution, 0, len(produced))
	for _, m := range produced {
		scored = append(scored, types.ScoredSolution{
			Methodology: m,
			Scores: types.ScoreDimensions{
				Novelty: 7, Feasibility: 6, Impact: 8,
				Scalability: 5, CostEfficiency: 6, TimeToMarket: 4,
			},
			Rationale: "r",
		})
	}
	return &types.Scoring{ScoredSolutions: scored}, nil
}

func (g *fakeGenerator) Patent(ctx context.Context, prompt string) (*types.PatentLandscape, error) {
	if err := g.record(ctx, types.StagePatent, prompt); err != nil {
		return nil, err
	}
	return &types.PatentLandscape{
		WhiteSpaces:    []string{"w"},
		RiskLevel:      "low",
		Recommendation: "proceed",
	}, nil
}

// fakeAugmentor records queries and returns a fixed snippet.
type fakeAugmentor struct {
	result  string
	queries []string
}

func (a *fakeAugmentor) Augment(_ context.Context, query string) string {
	a.queries = append(a.queries, query)
	return a.result
}

func description() string { return strings.Repeat("water scarcity ", 3) }

func TestRunCompletesAllStages(t *testing.T) {
	st := newFakeStore(types.ChallengePending)
	gen := newFakeGenerator()
	aug := &fakeAugmentor{result: "- Desalination: overview (https://example.com)"}
	r := NewRunner(st, gen, aug)

	err := r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, description())
	require.NoError(t, err)

	assert.Equal(t, types.ChallengeCompleted, st.challenge.Status)
	for _, stage := range types.StageOrder {
		assert.Equal(t, types.StageCompleted, st.challenge.Stages[stage], stage)
	}
	assert.Equal(t, types.StageOrder, gen.calls)
	assert.Contains(t, gen.prompts[types.StageResearch], aug.result)

	require.Len(t, aug.queries, 1)
	assert.Contains(t, aug.queries[0], "solutions approaches")
}

func TestRunWriteOrdering(t *testing.T) {
	st := newFakeStore(types.ChallengePending)
	r := NewRunner(st, newFakeGenerator(), &fakeAugmentor{})

	require.NoError(t, r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, description()))

	writes := st.snapshot()
	require.NotEmpty(t, writes)
	assert.Equal(t, write{kind: "status", status: types.ChallengeAnalyzing}, writes[0])
	assert.Equal(t, types.ChallengeCompleted, writes[len(writes)-1].status)

	// Each stage sees Running with no payload, then Completed with one.
	var stageWrites []write
	for _, w := range writes {
		if w.kind == "stage" {
			stageWrites = append(stageWrites, w)
		}
	}
	// Six Running/Completed pairs plus the scored-solutions re-patch.
	require.Len(t, stageWrites, 13)
	for i, stage := range types.StageOrder {
		running := stageWrites[2*i]
		completed := stageWrites[2*i+1]
		assert.Equal(t, stage, running.stage)
		assert.Equal(t, types.StageRunning, running.state)
		assert.Nil(t, running.payload)
		assert.Equal(t, stage, completed.stage)
		assert.Equal(t, types.StageCompleted, completed.state)
		assert.NotNil(t, completed.payload)
	}

	repatch := stageWrites[10]
	assert.Equal(t, types.StageInnovation, repatch.stage)
	assert.Equal(t, types.StageCompleted, repatch.state)
	scored, ok := repatch.payload.([]types.Solution)
	require.True(t, ok)
	require.Len(t, scored, len(types.Methodologies))
	for _, sol := range scored {
		require.NotNil(t, sol.Scores, sol.Methodology)
		assert.True(t, sol.Scores.InRange())
	}
}

func TestRunStageFailureIsolatesRemainder(t *testing.T) {
	st := newFakeStore(types.ChallengePending)
	gen := newFakeGenerator()
	gen.failAt = types.StageGapAnalysis
	gen.failWith = errors.New("model unavailable")
	r := NewRunner(st, gen, &fakeAugmentor{})

	err := r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, description())
	require.Error(t, err)
	assert.ErrorContains(t, err, "model unavailable")

	assert.Equal(t, types.ChallengeFailed, st.challenge.Status)
	assert.Equal(t, types.StageCompleted, st.challenge.Stages[types.StageDecomposition])
	assert.Equal(t, types.StageCompleted, st.challenge.Stages[types.StageResearch])
	assert.Equal(t, types.StageFailed, st.challenge.Stages[types.StageGapAnalysis])
	for _, stage := range []types.Stage{types.StageInnovation, types.StageScoring, types.StagePatent} {
		assert.Equal(t, types.StagePending, st.challenge.Stages[stage], stage)
	}

	// Later stages were never invoked.
	assert.Equal(t, []types.Stage{
		types.StageDecomposition, types.StageResearch, types.StageGapAnalysis,
	}, gen.calls)
}

func TestRunRetriesFailedChallengeFromStart(t *testing.T) {
	st := newFakeStore(types.ChallengePending)
	gen := newFakeGenerator()
	gen.failAt = types.StagePatent
	gen.failWith = errors.New("quota exhausted")
	r := NewRunner(st, gen, &fakeAugmentor{})

	require.Error(t, r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, description()))
	require.Equal(t, types.ChallengeFailed, st.challenge.Status)

	gen.failAt = ""
	gen.calls = nil
	require.NoError(t, r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, description()))

	assert.Equal(t, types.ChallengeCompleted, st.challenge.Status)
	// Retry starts at stage one, not at the failed stage.
	assert.Equal(t, types.StageOrder, gen.calls)
}

func TestRunRejectsShortDescription(t *testing.T) {
	st := newFakeStore(types.ChallengePending)
	r := NewRunner(st, newFakeGenerator(), &fakeAugmentor{})

	err := r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, "   too short   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "description", verr.Field)
	assert.Empty(t, st.snapshot())
}

func TestRunRejectsMissingIdentifiers(t *testing.T) {
	st := newFakeStore(types.ChallengePending)
	r := NewRunner(st, newFakeGenerator(), &fakeAugmentor{})

	var verr *ValidationError
	require.ErrorAs(t, r.Run(context.Background(), uuid.Nil, st.challenge.UserID, description()), &verr)
	require.ErrorAs(t, r.Run(context.Background(), st.challenge.ID, uuid.Nil, description()), &verr)
}

func TestRunRejectsActiveStatuses(t *testing.T) {
	for _, status := range []types.ChallengeStatus{types.ChallengeAnalyzing, types.ChallengeCompleted} {
		st := newFakeStore(status)
		r := NewRunner(st, newFakeGenerator(), &fakeAugmentor{})

		err := r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, description())
		var cerr *ConflictError
		require.ErrorAs(t, err, &cerr, status)
		assert.Equal(t, status, cerr.Status)
	}
}

func TestRunUnknownChallenge(t *testing.T) {
	st := newFakeStore(types.ChallengePending)
	r := NewRunner(st, newFakeGenerator(), &fakeAugmentor{})

	err := r.Run(context.Background(), uuid.New(), st.challenge.UserID, description())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunSingleFlightPerChallenge(t *testing.T) {
	st := newFakeStore(types.ChallengePending)
	gen := newFakeGenerator()
	gen.failAt = types.StageDecomposition
	gen.block = true
	r := NewRunner(st, gen, &fakeAugmentor{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, st.challenge.ID, st.challenge.UserID, description())
	}()
	// The first run holds the per-challenge slot once stage one has started.
	<-gen.entered

	second := r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, description())
	var cerr *ConflictError
	require.ErrorAs(t, second, &cerr)
	assert.Equal(t, types.ChallengeAnalyzing, cerr.Status)

	cancel()
	require.Error(t, <-done)

	// The slot is released after the run ends; a fresh run can start.
	gen.mu.Lock()
	gen.failAt = ""
	gen.block = false
	gen.mu.Unlock()
	assert.NoError(t, r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, description()))
}

func TestRunBudgetExpiryMarksFailure(t *testing.T) {
	st := newFakeStore(types.ChallengePending)
	gen := newFakeGenerator()
	gen.failAt = types.StageResearch
	gen.block = true
	r := NewRunner(st, gen, &fakeAugmentor{}, WithRunBudget(50*time.Millisecond))

	err := r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, description())
	require.Error(t, err)

	// The failure markers survive the expired budget.
	assert.Equal(t, types.ChallengeFailed, st.challenge.Status)
	assert.Equal(t, types.StageFailed, st.challenge.Stages[types.StageResearch])
}

func TestRunStoreFailureOnSuccessWriteIsFatal(t *testing.T) {
	st := newFakeStore(types.ChallengePending)
	st.stageErrs[stageKey(types.StageResearch, types.StageCompleted)] = errors.New("connection reset")
	r := NewRunner(st, newFakeGenerator(), &fakeAugmentor{})

	err := r.Run(context.Background(), st.challenge.ID, st.challenge.UserID, description())
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.ErrorContains(t, serr, "connection reset")
	assert.Equal(t, types.ChallengeFailed, st.challenge.Status)
}

func TestAttachScoresToleratesMissingEntries(t *testing.T) {
	solutions := []types.Solution{
		{Methodology: types.MethodologyTRIZ, Title: "a"},
		{Methodology: types.MethodologySCAMPER, Title: "b"},
	}
	scoring := &types.Scoring{ScoredSolutions: []types.ScoredSolution{{
		Methodology: types.MethodologyTRIZ,
		Scores:      types.ScoreDimensions{Novelty: 9, Feasibility: 5, Impact: 7, Scalability: 6, CostEfficiency: 4, TimeToMarket: 3},
	}}}

	scored := attachScores(solutions, scoring)
	require.Len(t, scored, 2)
	require.NotNil(t, scored[0].Scores)
	assert.Equal(t, 9, scored[0].Scores.Novelty)
	assert.Nil(t, scored[1].Scores)
	// The input slice is untouched.
	assert.Nil(t, solutions[0].Scores)
}
