package tensormap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLabels(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		entries [][]int32
		wantErr bool
	}{
		{
			name:    "Valid",
			names:   []string{"structure", "atom"},
			entries: [][]int32{{0, 0}, {0, 1}, {1, 0}},
		},
		{
			name:    "Valid_Empty",
			names:   []string{"n"},
			entries: nil,
		},
		{
			name:    "NoNames",
			names:   nil,
			entries: nil,
			wantErr: true,
		},
		{
			name:    "EmptyName",
			names:   []string{"a", ""},
			entries: nil,
			wantErr: true,
		},
		{
			name:    "DuplicateName",
			names:   []string{"a", "a"},
			entries: nil,
			wantErr: true,
		},
		{
			name:    "ArityMismatch",
			names:   []string{"a", "b"},
			entries: [][]int32{{0, 0}, {1}},
			wantErr: true,
		},
		{
			name:    "DuplicateEntry",
			names:   []string{"a", "b"},
			entries: [][]int32{{0, 0}, {1, 1}, {0, 0}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLabels(tt.names, tt.entries)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.entries), l.Count())
			assert.Equal(t, tt.names, l.Names())
		})
	}
}

func TestLabelsPosition(t *testing.T) {
	l := MustLabels([]string{"a", "b"}, [][]int32{{0, 0}, {0, 1}, {2, 3}})

	i, ok := l.Position([]int32{2, 3})
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = l.Position([]int32{1, 1})
	assert.False(t, ok)

	// Arity mismatch never matches.
	_, ok = l.Position([]int32{0})
	assert.False(t, ok)
}

func TestLabelsIterationOrder(t *testing.T) {
	entries := [][]int32{{3}, {1}, {2}}
	l := MustLabels([]string{"n"}, entries)

	var got [][]int32
	for i, entry := range l.All() {
		assert.Equal(t, entries[i], l.Entry(i))
		got = append(got, append([]int32(nil), entry...))
	}
	assert.Equal(t, entries, got)
}

func TestLabelsEqual(t *testing.T) {
	a := MustLabels([]string{"n"}, [][]int32{{0}, {1}})
	b := MustLabels([]string{"n"}, [][]int32{{0}, {1}})
	c := MustLabels([]string{"n"}, [][]int32{{1}, {0}})
	d := MustLabels([]string{"m"}, [][]int32{{0}, {1}})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(nil))
}

func TestSingleLabels(t *testing.T) {
	l := SingleLabels()

	assert.Equal(t, []string{"_"}, l.Names())
	require.Equal(t, 1, l.Count())
	assert.Equal(t, []int32{0}, l.Entry(0))
}

func TestNewLabelsRejectsReservedNameCharacters(t *testing.T) {
	// These characters are structural in serialized headers; a name
	// carrying one could not round-trip through an archive.
	for _, name := range []string{
		"bad,name", "bad'name", `bad"name`, "bad(name", "bad)name",
		"bad[name", "bad]name", "bad{name", "bad}name", "bad\nname",
	} {
		_, err := NewLabels([]string{name}, [][]int32{{0}})
		require.ErrorIs(t, err, ErrInvalidParameter, "name %q", name)
	}

	// Spaces and non-ASCII letters are fine.
	_, err := NewLabels([]string{"first atom", "σ"}, [][]int32{{0, 1}})
	assert.NoError(t, err)
}

func TestRangeLabels(t *testing.T) {
	l, err := RangeLabels("sample", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"sample"}, l.Names())
	require.Equal(t, 3, l.Count())
	for i, entry := range l.All() {
		assert.Equal(t, []int32{int32(i)}, entry)
	}

	empty, err := RangeLabels("sample", 0)
	require.NoError(t, err)
	assert.Zero(t, empty.Count())

	_, err = RangeLabels("sample", -1)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestLabelsMatching(t *testing.T) {
	l := MustLabels([]string{"a", "b"}, [][]int32{{0, 0}, {0, 1}, {1, 0}, {1, 1}})

	bm, err := l.matching([]string{"a"}, []int32{1})
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3}, bm.ToArray())

	bm, err = l.matching([]string{"b", "a"}, []int32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, bm.ToArray())

	bm, err = l.matching([]string{"a"}, []int32{7})
	require.NoError(t, err)
	assert.True(t, bm.IsEmpty())

	_, err = l.matching([]string{"c"}, []int32{0})
	require.ErrorIs(t, err, ErrInvalidParameter)
}
