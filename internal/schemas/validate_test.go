package schemas

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perviz24/innovati-x/internal/types"
)

const validDecomposition = `{
	"components": ["battery chemistry", "charging network"],
	"constraints": ["cost per unit", "regulatory approval"],
	"assumptions": ["users charge overnight"],
	"stakeholders": ["drivers", "grid operators"],
	"successCriteria": ["80% charge in 15 minutes"]
}`

func validInnovation(t *testing.T) []byte {
	t.Helper()
	solutions := make([]json.RawMessage, 0, 6)
	for _, m := range types.Methodologies {
		var sol types.Solution
		require.NoError(t, json.Unmarshal([]byte(`{"methodology":"`+string(m)+`","title":"t","description":"d","keyInsights":["i"]}`), &sol))
		raw, err := json.Marshal(sol)
		require.NoError(t, err)
		solutions = append(solutions, raw)
	}
	doc, err := json.Marshal(map[string]any{"solutions": solutions})
	require.NoError(t, err)
	return doc
}

func TestValidateStageDecomposition(t *testing.T) {
	assert.NoError(t, ValidateStage(types.StageDecomposition, []byte(validDecomposition)))
}

func TestValidateStageMissingField(t *testing.T) {
	doc := `{
		"components": ["a"],
		"constraints": ["b"],
		"assumptions": ["c"],
		"stakeholders": ["d"]
	}`

	err := ValidateStage(types.StageDecomposition, []byte(doc))
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, types.StageDecomposition, schemaErr.Stage)
	require.Len(t, schemaErr.Violations, 1)
	assert.Equal(t, ReasonMissingField, schemaErr.Violations[0].Reason)
}

func TestValidateStageWrongType(t *testing.T) {
	doc := `{
		"components": "not an array",
		"constraints": ["b"],
		"assumptions": ["c"],
		"stakeholders": ["d"],
		"successCriteria": ["e"]
	}`

	err := ValidateStage(types.StageDecomposition, []byte(doc))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 1)
	assert.Equal(t, ReasonWrongType, schemaErr.Violations[0].Reason)
	assert.Equal(t, "components", schemaErr.Violations[0].Field)
}

func TestValidateStageNotJSON(t *testing.T) {
	err := ValidateStage(types.StageDecomposition, []byte("I could not produce JSON"))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, ReasonWrongType, schemaErr.Violations[0].Reason)
}

func TestValidateStageResearch(t *testing.T) {
	doc := `{
		"existingSolutions": [{
			"title": "Swappable batteries",
			"description": "Exchange stations instead of charging",
			"source": "NIO",
			"url": "https://example.com",
			"strengths": ["fast"],
			"weaknesses": ["infrastructure cost"]
		}],
		"citations": [{"title": "Battery swap study", "source": "academic"}]
	}`
	assert.NoError(t, ValidateStage(types.StageResearch, []byte(doc)))
}

func TestValidateStageResearchBadSourceKind(t *testing.T) {
	doc := `{
		"existingSolutions": [],
		"citations": [{"title": "x", "source": "blog"}]
	}`

	err := ValidateStage(types.StageResearch, []byte(doc))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 1)
	assert.Equal(t, ReasonEnumViolation, schemaErr.Violations[0].Reason)
}

func TestValidateStageInnovation(t *testing.T) {
	assert.NoError(t, ValidateStage(types.StageInnovation, validInnovation(t)))
}

func TestValidateStageInnovationWrongCount(t *testing.T) {
	doc := `{"solutions": [` + `{"methodology":"TRIZ","title":"t","description":"d","keyInsights":["i"]}` + `]}`

	err := ValidateStage(types.StageInnovation, []byte(doc))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.NotEmpty(t, schemaErr.Violations)
}

func TestValidateStageInnovationUnknownMethodology(t *testing.T) {
	doc := validInnovation(t)
	var payload struct {
		Solutions []map[string]any `json:"solutions"`
	}
	require.NoError(t, json.Unmarshal(doc, &payload))
	payload.Solutions[0]["methodology"] = "Six Sigma"
	bad, err := json.Marshal(payload)
	require.NoError(t, err)

	verr := ValidateStage(types.StageInnovation, bad)
	var schemaErr *SchemaError
	require.ErrorAs(t, verr, &schemaErr)
	assert.Equal(t, ReasonEnumViolation, schemaErr.Violations[0].Reason)
}

func TestValidateStageScoring(t *testing.T) {
	doc := `{"scoredSolutions": [{
		"methodology": "TRIZ",
		"scores": {"novelty": 8, "feasibility": 6, "impact": 9, "scalability": 7, "costEfficiency": 5, "timeToMarket": 4},
		"rationale": "strong contradiction resolution"
	}]}`
	assert.NoError(t, ValidateStage(types.StageScoring, []byte(doc)))
}

func TestValidateStageScoringOutOfRange(t *testing.T) {
	doc := `{"scoredSolutions": [{
		"methodology": "TRIZ",
		"scores": {"novelty": 11, "feasibility": 0, "impact": 9, "scalability": 7, "costEfficiency": 5, "timeToMarket": 4},
		"rationale": "r"
	}]}`

	err := ValidateStage(types.StageScoring, []byte(doc))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 2)
	for _, v := range schemaErr.Violations {
		assert.Equal(t, ReasonOutOfRange, v.Reason)
	}
}

func TestValidateStageScoringNonInteger(t *testing.T) {
	doc := `{"scoredSolutions": [{
		"methodology": "TRIZ",
		"scores": {"novelty": 7.5, "feasibility": 6, "impact": 9, "scalability": 7, "costEfficiency": 5, "timeToMarket": 4},
		"rationale": "r"
	}]}`

	err := ValidateStage(types.StageScoring, []byte(doc))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, ReasonWrongType, schemaErr.Violations[0].Reason)
}

func TestValidateStagePatent(t *testing.T) {
	doc := `{
		"existingPatents": [{"title": "US patent", "number": "US1234567", "relevance": "high", "summary": "covers swap mechanism"}],
		"whiteSpaces": ["rural deployment"],
		"riskLevel": "medium",
		"recommendation": "file provisional applications early"
	}`
	assert.NoError(t, ValidateStage(types.StagePatent, []byte(doc)))
}

func TestValidateStageUnknownStage(t *testing.T) {
	err := ValidateStage(types.Stage("rendering"), []byte(`{}`))
	require.Error(t, err)
	var schemaErr *SchemaError
	assert.False(t, errors.As(err, &schemaErr))
}
