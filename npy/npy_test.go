package npy

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat64RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		data  []float64
	}{
		{name: "Matrix", shape: []int{2, 3}, data: []float64{1, 2, 3, 4, 5.5, -6}},
		{name: "Rank4", shape: []int{1, 2, 1, 2}, data: []float64{0, -0.5, 1e300, 42}},
		{name: "Empty", shape: []int{0, 3}, data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := EncodeFloat64(tt.shape, tt.data)

			shape, data, err := DecodeFloat64(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, shape)
			if len(tt.data) == 0 {
				assert.Empty(t, data)
			} else {
				assert.Equal(t, tt.data, data)
			}
		})
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	names := []string{"structure", "atom"}
	values := []int32{0, 0, 0, 1, 1, 0, -5, 7}

	buf := EncodeRecords(names, 4, values)

	gotNames, gotValues, err := DecodeRecords(buf)
	require.NoError(t, err)
	assert.Equal(t, names, gotNames)
	assert.Equal(t, values, gotValues)
}

func TestEncodeIsCanonical(t *testing.T) {
	a := EncodeFloat64([]int{2, 2}, []float64{1, 2, 3, 4})
	b := EncodeFloat64([]int{2, 2}, []float64{1, 2, 3, 4})
	assert.Equal(t, a, b)

	// The payload starts at a 64 byte boundary.
	header := a[:len(a)-4*8]
	assert.Zero(t, len(header)%64)
	assert.Equal(t, byte('\n'), header[len(header)-1])
}

func TestDecodeFloat64Errors(t *testing.T) {
	valid := EncodeFloat64([]int{2}, []float64{1, 2})

	t.Run("Truncated", func(t *testing.T) {
		_, _, err := DecodeFloat64(valid[:len(valid)-1])
		require.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("ShortBuffer", func(t *testing.T) {
		_, _, err := DecodeFloat64([]byte{0x93, 'N'})
		require.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("BadMagic", func(t *testing.T) {
		corrupted := bytes.Clone(valid)
		corrupted[0] = 'X'
		_, _, err := DecodeFloat64(corrupted)
		require.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		corrupted := bytes.Clone(valid)
		corrupted[6] = 9
		_, _, err := DecodeFloat64(corrupted)
		require.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("WrongDtype", func(t *testing.T) {
		records := EncodeRecords([]string{"n"}, 1, []int32{0})
		_, _, err := DecodeFloat64(records)
		require.ErrorIs(t, err, ErrInvalidFormat)
	})
}

func TestDecodeRecordsErrors(t *testing.T) {
	t.Run("NotStructured", func(t *testing.T) {
		floats := EncodeFloat64([]int{1}, []float64{1})
		_, _, err := DecodeRecords(floats)
		require.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("Truncated", func(t *testing.T) {
		valid := EncodeRecords([]string{"n"}, 2, []int32{1, 2})
		_, _, err := DecodeRecords(valid[:len(valid)-2])
		require.ErrorIs(t, err, ErrInvalidFormat)
	})
}

func TestParseHeaderTolerates(t *testing.T) {
	// Other producers may pad differently or write version 2 or 3 headers.
	buf := EncodeFloat64([]int{1}, []float64{7})

	// Rewrite the version 1 header as a version 2 header.
	dict := buf[10 : len(buf)-8]
	var v2 []byte
	v2 = append(v2, "\x93NUMPY\x02\x00"...)
	v2 = append(v2, byte(len(dict)), byte(len(dict)>>8), 0, 0)
	v2 = append(v2, dict...)
	v2 = append(v2, buf[len(buf)-8:]...)

	shape, data, err := DecodeFloat64(v2)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, shape)
	assert.Equal(t, []float64{7}, data)
}
