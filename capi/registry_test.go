package capi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLabels(t *testing.T, r *Registry, names []string, entries [][]int32) Handle {
	t.Helper()
	h, st := r.CreateLabels(names, entries)
	require.Equal(t, StatusSuccess, st, r.LastError())
	return h
}

func newTestBlock(t *testing.T, r *Registry) Handle {
	t.Helper()
	samples := newTestLabels(t, r, []string{"structure"}, [][]int32{{0}, {1}})
	properties := newTestLabels(t, r, []string{"n"}, [][]int32{{0}})
	h, st := r.CreateBlock([]int{2, 1}, []float64{1, 2}, samples, nil, properties)
	require.Equal(t, StatusSuccess, st, r.LastError())
	return h
}

func TestRegistryLabels(t *testing.T) {
	r := NewRegistry()

	h := newTestLabels(t, r, []string{"l"}, [][]int32{{0}, {1}})

	count, st := r.LabelsCount(h)
	require.Equal(t, StatusSuccess, st)
	assert.Equal(t, 2, count)

	names, st := r.LabelsNames(h)
	require.Equal(t, StatusSuccess, st)
	assert.Equal(t, []string{"l"}, names)

	// Construction errors carry a status and a message.
	_, st = r.CreateLabels([]string{"l"}, [][]int32{{0}, {0}})
	assert.Equal(t, StatusInvalidParameter, st)
	assert.NotEmpty(t, r.LastError())

	// A following success clears the message.
	_, st = r.LabelsCount(h)
	require.Equal(t, StatusSuccess, st)
	assert.Empty(t, r.LastError())
}

func TestRegistryFree(t *testing.T) {
	r := NewRegistry()
	h := newTestLabels(t, r, []string{"l"}, [][]int32{{0}})

	require.Equal(t, StatusSuccess, r.Free(h))

	// Double free is a reported error, not a crash.
	assert.Equal(t, StatusInvalidParameter, r.Free(h))
	assert.NotEmpty(t, r.LastError())

	_, st := r.LabelsCount(h)
	assert.Equal(t, StatusInvalidParameter, st)
}

func TestRegistryWrongHandleType(t *testing.T) {
	r := NewRegistry()
	h := newTestLabels(t, r, []string{"l"}, [][]int32{{0}})

	_, st := r.MapLen(h)
	assert.Equal(t, StatusInvalidParameter, st)
	assert.NotEmpty(t, r.LastError())
}

func TestRegistryCreateMapOwnership(t *testing.T) {
	r := NewRegistry()
	keys := newTestLabels(t, r, []string{"l"}, [][]int32{{0}})
	block := newTestBlock(t, r)

	m, st := r.CreateMap(keys, []Handle{block})
	require.Equal(t, StatusSuccess, st, r.LastError())

	n, st := r.MapLen(m)
	require.Equal(t, StatusSuccess, st)
	assert.Equal(t, 1, n)

	// The block handle moved into the map and is no longer live.
	st = r.Free(block)
	assert.Equal(t, StatusInvalidParameter, st)

	// Reusing it in another map is rejected, not undefined behavior.
	keys2 := newTestLabels(t, r, []string{"l"}, [][]int32{{0}})
	_, st = r.CreateMap(keys2, []Handle{block})
	assert.Equal(t, StatusInvalidParameter, st)
}

func TestRegistryCreateMapFailureKeepsHandles(t *testing.T) {
	r := NewRegistry()
	keys := newTestLabels(t, r, []string{"l"}, [][]int32{{0}, {1}})
	block := newTestBlock(t, r)

	// One block for two keys fails; the block handle stays live.
	_, st := r.CreateMap(keys, []Handle{block})
	require.Equal(t, StatusInvalidParameter, st)

	require.Equal(t, StatusSuccess, r.Free(block))
}

func TestRegistryBorrowedBlocks(t *testing.T) {
	r := NewRegistry()
	keys := newTestLabels(t, r, []string{"l"}, [][]int32{{0}})
	block := newTestBlock(t, r)
	m, st := r.CreateMap(keys, []Handle{block})
	require.Equal(t, StatusSuccess, st, r.LastError())

	borrowed, st := r.MapBlockByID(m, 0)
	require.Equal(t, StatusSuccess, st)

	// Borrowed handles cannot transfer ownership into another map.
	keys2 := newTestLabels(t, r, []string{"l"}, [][]int32{{0}})
	_, st = r.CreateMap(keys2, []Handle{borrowed})
	assert.Equal(t, StatusInvalidParameter, st)

	// But they are freed like any other handle.
	require.Equal(t, StatusSuccess, r.Free(borrowed))

	_, st = r.MapBlockByID(m, 7)
	assert.Equal(t, StatusOutOfBounds, st)
}

func TestRegistryAddGradientOwnership(t *testing.T) {
	r := NewRegistry()
	block := newTestBlock(t, r)

	gradSamples := newTestLabels(t, r, []string{"sample"}, [][]int32{{0}})
	gradProperties := newTestLabels(t, r, []string{"n"}, [][]int32{{0}})
	gradient, st := r.CreateBlock([]int{1, 1}, []float64{0.5}, gradSamples, nil, gradProperties)
	require.Equal(t, StatusSuccess, st, r.LastError())

	st = r.BlockAddGradient(block, "positions", gradient)
	require.Equal(t, StatusSuccess, st, r.LastError())

	// The gradient handle moved into the parent block.
	assert.Equal(t, StatusInvalidParameter, r.Free(gradient))
}

func TestRegistryReshape(t *testing.T) {
	r := NewRegistry()
	keys := newTestLabels(t, r, []string{"l"}, [][]int32{{0}, {1}})
	b0 := newTestBlock(t, r)
	b1 := newTestBlock(t, r)
	m, st := r.CreateMap(keys, []Handle{b0, b1})
	require.Equal(t, StatusSuccess, st, r.LastError())

	st = r.MapKeysToProperties(m, []string{"l"})
	require.Equal(t, StatusSuccess, st, r.LastError())

	n, st := r.MapLen(m)
	require.Equal(t, StatusSuccess, st)
	assert.Equal(t, 1, n)

	st = r.MapKeysToSamples(m, []string{"missing"})
	assert.Equal(t, StatusInvalidParameter, st)
	assert.NotEmpty(t, r.LastError())
}

func TestRegistryEncodeDecode(t *testing.T) {
	r := NewRegistry()
	keys := newTestLabels(t, r, []string{"l"}, [][]int32{{0}})
	block := newTestBlock(t, r)
	m, st := r.CreateMap(keys, []Handle{block})
	require.Equal(t, StatusSuccess, st, r.LastError())

	data, st := r.Encode(m)
	require.Equal(t, StatusSuccess, st, r.LastError())
	require.NotEmpty(t, data)

	decoded, st := r.Decode(data)
	require.Equal(t, StatusSuccess, st, r.LastError())

	n, st := r.MapLen(decoded)
	require.Equal(t, StatusSuccess, st)
	assert.Equal(t, 1, n)

	_, st = r.Decode([]byte("garbage"))
	assert.Equal(t, StatusCorruptedData, st)
	assert.NotEmpty(t, r.LastError())
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusSuccess, "success"},
		{StatusInvalidParameter, "invalid parameter"},
		{StatusOutOfBounds, "out of bounds"},
		{StatusCorruptedData, "corrupted data"},
		{StatusInternalError, "internal error"},
		{Status(99), "unknown status"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.status.String())
	}
}
