package tensormap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysToSamples(t *testing.T) {
	tm := mergeFixture(t)

	require.NoError(t, tm.KeysToSamples("l"))

	assert.True(t, tm.Keys().Equal(MustLabels([]string{"s"}, [][]int32{{0}, {1}})))
	require.Equal(t, 2, tm.Len())

	merged, err := tm.BlockByID(0)
	require.NoError(t, err)

	// Moved variables come last in the sample names; rows are re-sorted
	// lexicographically over the full entries.
	assert.True(t, merged.Samples().Equal(MustLabels(
		[]string{"structure", "l"},
		[][]int32{{0, 0}, {1, 1}, {2, 0}},
	)))
	// Properties are untouched.
	assert.True(t, merged.Properties().Equal(MustLabels([]string{"n"}, [][]int32{{0}, {1}})))
	assert.Equal(t, []float64{
		1, 2,
		5, 6,
		3, 4,
	}, merged.Values().Data())

	other, err := tm.BlockByID(1)
	require.NoError(t, err)
	assert.True(t, other.Samples().Equal(MustLabels(
		[]string{"structure", "l"},
		[][]int32{{0, 0}},
	)))
	assert.Equal(t, []float64{7, 8}, other.Values().Data())
}

func TestKeysToSamplesGradients(t *testing.T) {
	tm := mergeFixture(t)

	addGradient := func(id int, sampleEntries [][]int32, cells []float64) {
		block, err := tm.BlockByID(id)
		require.NoError(t, err)
		arr, err := NewArrayFrom(cells, len(sampleEntries), 2)
		require.NoError(t, err)
		gradient, err := NewBlock(
			arr,
			MustLabels([]string{"sample", "atom"}, sampleEntries),
			nil,
			block.Properties(),
		)
		require.NoError(t, err)
		require.NoError(t, block.AddGradient("positions", gradient))
	}
	addGradient(0, [][]int32{{1, 0}, {0, 0}}, []float64{10, 11, 12, 13})
	addGradient(1, [][]int32{{0, 0}}, []float64{20, 21})
	addGradient(2, [][]int32{{0, 0}}, []float64{30, 31})

	require.NoError(t, tm.KeysToSamples("l"))

	merged, err := tm.BlockByID(0)
	require.NoError(t, err)
	gradient, ok := merged.Gradient("positions")
	require.True(t, ok)

	// Block 0 samples {0, 2} land at merged rows {0, 2}; block 1 sample {1}
	// lands at row 1. Gradient rows are re-sorted after remapping.
	assert.True(t, gradient.Samples().Equal(MustLabels(
		[]string{"sample", "atom"},
		[][]int32{{0, 0}, {1, 0}, {2, 0}},
	)))
	assert.Equal(t, []float64{
		12, 13,
		20, 21,
		10, 11,
	}, gradient.Values().Data())
}

func TestKeysToSamplesPropertyMismatch(t *testing.T) {
	keys := MustLabels([]string{"l"}, [][]int32{{0}, {1}})
	build := func(propertyValue int32) *Block {
		block, err := NewBlock(
			NewArray(1, 1),
			MustLabels([]string{"structure"}, [][]int32{{0}}),
			nil,
			MustLabels([]string{"n"}, [][]int32{{propertyValue}}),
		)
		require.NoError(t, err)
		return block
	}
	tm, err := New(keys, []*Block{build(0), build(7)})
	require.NoError(t, err)

	// Merging along samples has no zero-padding fallback: differing property
	// labels are rejected and the map stays unchanged.
	require.ErrorIs(t, tm.KeysToSamples("l"), ErrInvalidParameter)
	assert.Equal(t, 2, tm.Len())
	assert.True(t, tm.Keys().Equal(keys))
}

func TestKeysToSamplesErrors(t *testing.T) {
	tests := []struct {
		name      string
		variables []string
	}{
		{name: "NoVariables", variables: nil},
		{name: "UnknownVariable", variables: []string{"other"}},
		{name: "DuplicateRequest", variables: []string{"l", "l"}},
		{name: "SampleNameCollision", variables: []string{"structure"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := MustLabels([]string{"l", "structure"}, [][]int32{{0, 0}})
			block, err := NewBlock(
				NewArray(1, 1),
				MustLabels([]string{"structure"}, [][]int32{{0}}),
				nil,
				MustLabels([]string{"n"}, [][]int32{{0}}),
			)
			require.NoError(t, err)
			tm, err := New(keys, []*Block{block})
			require.NoError(t, err)

			require.ErrorIs(t, tm.KeysToSamples(tt.variables...), ErrInvalidParameter)
		})
	}
}
