package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tensormap"
	"github.com/hupe1980/tensormap/testutil"
)

func requireEqualLabels(t *testing.T, want, got *tensormap.Labels) {
	t.Helper()
	require.True(t, want.Equal(got), "labels differ: %v vs %v", want.Names(), got.Names())
}

func requireEqualBlocks(t *testing.T, want, got *tensormap.Block) {
	t.Helper()
	assert.Equal(t, want.Values().Shape(), got.Values().Shape())
	assert.Equal(t, want.Values().Data(), got.Values().Data())
	requireEqualLabels(t, want.Samples(), got.Samples())
	requireEqualLabels(t, want.Properties(), got.Properties())

	wantComponents := want.Components()
	gotComponents := got.Components()
	require.Len(t, gotComponents, len(wantComponents))
	for i := range wantComponents {
		requireEqualLabels(t, wantComponents[i], gotComponents[i])
	}

	require.ElementsMatch(t, want.GradientList(), got.GradientList())
	for _, parameter := range want.GradientList() {
		wantGradient, _ := want.Gradient(parameter)
		gotGradient, ok := got.Gradient(parameter)
		require.True(t, ok)
		requireEqualBlocks(t, wantGradient, gotGradient)
	}
}

func requireEqualMaps(t *testing.T, want, got *tensormap.TensorMap) {
	t.Helper()
	requireEqualLabels(t, want.Keys(), got.Keys())
	require.Equal(t, want.Len(), got.Len())
	for i := range want.Len() {
		wantBlock, err := want.BlockByID(i)
		require.NoError(t, err)
		gotBlock, err := got.BlockByID(i)
		require.NoError(t, err)
		requireEqualBlocks(t, wantBlock, gotBlock)
	}
}

func TestRoundTrip(t *testing.T) {
	tm := testutil.SphericalExpansion()

	data, err := Encode(tm)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	requireEqualMaps(t, tm, decoded)
}

func TestRoundTripIsByteExact(t *testing.T) {
	tm := testutil.SphericalExpansion()

	first, err := Encode(tm)
	require.NoError(t, err)

	decoded, err := Decode(first)
	require.NoError(t, err)

	second, err := Encode(decoded)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second), "re-encoding a decoded archive must be byte-identical")
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(testutil.SphericalExpansion())
	require.NoError(t, err)
	b, err := Encode(testutil.SphericalExpansion(), WithParallelism(1))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompression(t *testing.T) {
	tm := testutil.SphericalExpansion()
	plain, err := Encode(tm)
	require.NoError(t, err)

	tests := []struct {
		name        string
		compression Compression
		magic       []byte
	}{
		{name: "Zstd", compression: CompressionZstd, magic: zstdMagic},
		{name: "LZ4", compression: CompressionLZ4, magic: lz4Magic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := Encode(tm, WithCompression(tt.compression))
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(compressed, tt.magic))
			assert.NotEqual(t, plain, compressed)

			// Decode sniffs the frame, no option needed.
			decoded, err := Decode(compressed)
			require.NoError(t, err)
			requireEqualMaps(t, tm, decoded)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tm := testutil.SphericalExpansion()
	valid, err := Encode(tm)
	require.NoError(t, err)

	t.Run("Garbage", func(t *testing.T) {
		_, err := Decode([]byte("not an archive"))
		require.ErrorIs(t, err, tensormap.ErrCorruptedData)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := Decode(valid[:len(valid)/2])
		require.ErrorIs(t, err, tensormap.ErrCorruptedData)
	})

	t.Run("TruncatedZstdFrame", func(t *testing.T) {
		compressed, err := Encode(tm, WithCompression(CompressionZstd))
		require.NoError(t, err)
		_, err = Decode(compressed[:len(compressed)-8])
		require.ErrorIs(t, err, tensormap.ErrCorruptedData)
	})
}

func TestDecodeRejectsUnexpectedEntries(t *testing.T) {
	entries, err := encodeEntries(testutil.SphericalExpansion(), 1)
	require.NoError(t, err)
	entries = append(entries, entry{name: "blocks/27/values.npy", data: entries[1].data})

	var buf bytes.Buffer
	writeArchive(t, &buf, entries)

	_, err = Decode(buf.Bytes())
	require.ErrorIs(t, err, tensormap.ErrCorruptedData)
}

func TestDecodeMissingKeys(t *testing.T) {
	entries, err := encodeEntries(testutil.SphericalExpansion(), 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	writeArchive(t, &buf, entries[1:]) // drop keys.npy

	_, err = Decode(buf.Bytes())
	require.ErrorIs(t, err, tensormap.ErrCorruptedData)
}

func writeArchive(t *testing.T, buf *bytes.Buffer, entries []entry) {
	t.Helper()
	buf.Reset()
	require.NoError(t, writeEntries(buf, entries))
}
