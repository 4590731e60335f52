package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perviz24/innovati-x/internal/types"
)

func TestPayloadColumnsCoverAllStages(t *testing.T) {
	assert.Len(t, payloadColumns, len(types.StageOrder))
	for _, stage := range types.StageOrder {
		col, ok := payloadColumns[stage]
		assert.True(t, ok, "stage %s has no payload column", stage)
		assert.NotEmpty(t, col)
	}
}

func TestPayloadColumnsRejectUnknownStage(t *testing.T) {
	_, ok := payloadColumns[types.Stage("rendering")]
	assert.False(t, ok)
}

func TestDecodeInto(t *testing.T) {
	var d *types.Decomposition
	require.NoError(t, decodeInto(nil, &d))
	assert.Nil(t, d)

	require.NoError(t, decodeInto([]byte(`{"components":["x"]}`), &d))
	require.NotNil(t, d)
	assert.Equal(t, []string{"x"}, d.Components)

	assert.Error(t, decodeInto([]byte(`{`), &d))
}
