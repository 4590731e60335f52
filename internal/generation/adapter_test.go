package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perviz24/innovati-x/internal/llm"
	"github.com/perviz24/innovati-x/internal/schemas"
	"github.com/perviz24/innovati-x/internal/types"
)

// fakeClient is an llm.Client returning a canned response or error.
type fakeClient struct {
	response   string
	err        error
	blockOnCtx bool
	calls      int
	lastPrompt string
	lastTier   llm.ModelTier
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastTier = tier
	if f.blockOnCtx {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.response, f.err
}

func (f *fakeClient) Close() error { return nil }

func innovationJSON(t *testing.T) string {
	t.Helper()
	solutions := make([]types.Solution, 0, 6)
	for _, m := range types.Methodologies {
		solutions = append(solutions, types.Solution{
			Methodology: m,
			Title:       "t",
			Description: "d",
			KeyInsights: []string{"i"},
		})
	}
	raw, err := json.Marshal(types.Innovation{Solutions: solutions})
	require.NoError(t, err)
	return string(raw)
}

func TestGenerateSuccess(t *testing.T) {
	client := &fakeClient{response: `{
		"components": ["a"], "constraints": ["b"], "assumptions": ["c"],
		"stakeholders": ["d"], "successCriteria": ["e"]
	}`}
	adapter := NewAdapter(client)

	out, err := adapter.Decomposition(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.Components)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "prompt text", client.lastPrompt)
	assert.Equal(t, llm.TierAdvanced, client.lastTier)
}

func TestGenerateProviderError(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("connection refused")}
	adapter := NewAdapter(client)

	_, err := adapter.Decomposition(context.Background(), "p")
	genErr, ok := AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonProviderUnavailable, genErr.Reason)
	assert.Equal(t, types.StageDecomposition, genErr.Stage)
	assert.Equal(t, 1, client.calls, "adapter must not retry")
}

func TestGenerateSchemaValidationFailure(t *testing.T) {
	client := &fakeClient{response: `{"components": "not an array"}`}
	adapter := NewAdapter(client)

	_, err := adapter.Decomposition(context.Background(), "p")
	genErr, ok := AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonSchemaValidationFailed, genErr.Reason)

	var schemaErr *schemas.SchemaError
	assert.True(t, errors.As(genErr.Err, &schemaErr))
}

func TestGenerateTimeout(t *testing.T) {
	client := &fakeClient{blockOnCtx: true}
	adapter := NewAdapter(client, WithCallTimeout(10*time.Millisecond))

	_, err := adapter.Decomposition(context.Background(), "p")
	genErr, ok := AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonTimeout, genErr.Reason)
}

func TestInnovationComplete(t *testing.T) {
	client := &fakeClient{response: innovationJSON(t)}
	adapter := NewAdapter(client)

	out, err := adapter.Innovation(context.Background(), "p")
	require.NoError(t, err)
	assert.Len(t, out.Solutions, 6)
}

func TestInnovationDuplicateMethodology(t *testing.T) {
	var payload types.Innovation
	require.NoError(t, json.Unmarshal([]byte(innovationJSON(t)), &payload))
	payload.Solutions[1].Methodology = payload.Solutions[0].Methodology
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	adapter := NewAdapter(&fakeClient{response: string(raw)})
	_, err = adapter.Innovation(context.Background(), "p")

	genErr, ok := AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonSchemaValidationFailed, genErr.Reason)
	assert.Contains(t, genErr.Err.Error(), "duplicate solution")
}

func TestScoringSubsetTolerated(t *testing.T) {
	client := &fakeClient{response: `{"scoredSolutions": [{
		"methodology": "TRIZ",
		"scores": {"novelty": 8, "feasibility": 6, "impact": 9, "scalability": 7, "costEfficiency": 5, "timeToMarket": 4},
		"rationale": "r"
	}]}`}
	adapter := NewAdapter(client)

	out, err := adapter.Scoring(context.Background(), "p", types.Methodologies)
	require.NoError(t, err)
	assert.Len(t, out.ScoredSolutions, 1)
}

func TestScoringForeignMethodologyFails(t *testing.T) {
	client := &fakeClient{response: `{"scoredSolutions": [{
		"methodology": "SCAMPER",
		"scores": {"novelty": 8, "feasibility": 6, "impact": 9, "scalability": 7, "costEfficiency": 5, "timeToMarket": 4},
		"rationale": "r"
	}]}`}
	adapter := NewAdapter(client)

	// Innovation produced only TRIZ, so a SCAMPER score has no join target.
	_, err := adapter.Scoring(context.Background(), "p", []types.Methodology{types.MethodologyTRIZ})

	genErr, ok := AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonSchemaValidationFailed, genErr.Reason)
	assert.Contains(t, genErr.Err.Error(), "no generated solution")
}

func TestScoringDuplicateEntryFails(t *testing.T) {
	entry := `{
		"methodology": "TRIZ",
		"scores": {"novelty": 8, "feasibility": 6, "impact": 9, "scalability": 7, "costEfficiency": 5, "timeToMarket": 4},
		"rationale": "r"
	}`
	client := &fakeClient{response: `{"scoredSolutions": [` + entry + `,` + entry + `]}`}
	adapter := NewAdapter(client)

	_, err := adapter.Scoring(context.Background(), "p", types.Methodologies)

	genErr, ok := AsGenerationError(err)
	require.True(t, ok)
	assert.Contains(t, genErr.Err.Error(), "duplicate scoring entry")
}

func TestGenerateUnknownStage(t *testing.T) {
	adapter := NewAdapter(&fakeClient{response: `{}`})

	_, err := adapter.Generate(context.Background(), types.Stage("rendering"), "p")
	genErr, ok := AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonSchemaValidationFailed, genErr.Reason)
}
