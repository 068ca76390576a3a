package tensormap

import (
	"encoding/binary"
	"iter"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/RoaringBitmap/roaring/v2"
)

// Labels is an immutable, ordered set of named integer tuples. It describes
// one axis of a block (samples, one component, properties) or the keys of a
// tensor map.
//
// Entries are unique and kept in insertion order; the order is load-bearing
// for axis indexing and for byte-stable serialization. Lookup by value is
// O(1).
//
// A fully built Labels is safe for concurrent readers.
type Labels struct {
	names  []string
	values []int32 // flattened entries, row-major: count * len(names)

	positions map[string]int

	// Lazily built per-variable inverted index, used for subset selections.
	indexOnce sync.Once
	index     []map[int32]*roaring.Bitmap
}

// reservedNameChars are the characters the serialized header syntax
// reserves; a name containing one could not be read back losslessly.
const reservedNameChars = `'",()[]{}`

// NewLabels builds a Labels from variable names and one integer tuple per
// entry. It returns ErrInvalidParameter if names is empty or contains
// duplicates, empty strings or reserved characters, if any entry's length
// differs from len(names), or if two entries are equal.
func NewLabels(names []string, entries [][]int32) (*Labels, error) {
	if len(names) == 0 {
		return nil, invalidParameterf("labels must have at least one variable name")
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return nil, invalidParameterf("labels variable names can not be empty")
		}
		if err := checkName(name); err != nil {
			return nil, err
		}
		if _, ok := seen[name]; ok {
			return nil, invalidParameterf("duplicate variable name %q in labels", name)
		}
		seen[name] = struct{}{}
	}

	l := &Labels{
		names:     slices.Clone(names),
		values:    make([]int32, 0, len(entries)*len(names)),
		positions: make(map[string]int, len(entries)),
	}
	for i, entry := range entries {
		if len(entry) != len(names) {
			return nil, invalidParameterf(
				"entry %d has %d values, expected %d", i, len(entry), len(names),
			)
		}
		key := entryKey(entry)
		if prev, ok := l.positions[key]; ok {
			return nil, invalidParameterf(
				"entries %d and %d of these labels are equal", prev, i,
			)
		}
		l.positions[key] = i
		l.values = append(l.values, entry...)
	}
	return l, nil
}

// MustLabels is like NewLabels but panics on error. Intended for tests and
// fixtures.
func MustLabels(names []string, entries [][]int32) *Labels {
	l, err := NewLabels(names, entries)
	if err != nil {
		panic(err)
	}
	return l
}

func checkName(name string) error {
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(reservedNameChars, r) {
			return invalidParameterf(
				"labels variable name %q contains the reserved character %q", name, r,
			)
		}
	}
	return nil
}

// RangeLabels returns labels with a single variable named name and the
// entries 0 through count-1 in order.
func RangeLabels(name string, count int) (*Labels, error) {
	if count < 0 {
		return nil, invalidParameterf("labels entry count can not be negative")
	}
	entries := make([][]int32, count)
	for i := range entries {
		entries[i] = []int32{int32(i)}
	}
	return NewLabels([]string{name}, entries)
}

// SingleLabels returns the canonical placeholder labels with a single
// variable named "_" and a single entry [0]. It is used as the keys of a
// tensor map when a reshape operation strips every key variable.
func SingleLabels() *Labels {
	return MustLabels([]string{"_"}, [][]int32{{0}})
}

// Count returns the number of entries.
func (l *Labels) Count() int {
	if len(l.names) == 0 {
		return 0
	}
	return len(l.values) / len(l.names)
}

// Arity returns the number of variables per entry.
func (l *Labels) Arity() int {
	return len(l.names)
}

// Names returns a copy of the variable names, in declaration order.
func (l *Labels) Names() []string {
	return slices.Clone(l.names)
}

// NameIndex returns the position of the given variable name, or false if
// these labels do not contain it.
func (l *Labels) NameIndex(name string) (int, bool) {
	i := slices.Index(l.names, name)
	return i, i >= 0
}

// Entry returns a copy of the i-th entry. It panics if i is out of range.
func (l *Labels) Entry(i int) []int32 {
	return slices.Clone(l.entry(i))
}

// entry returns the i-th entry without copying. Callers must not modify it.
func (l *Labels) entry(i int) []int32 {
	n := len(l.names)
	return l.values[i*n : (i+1)*n]
}

// Position returns the index of the given entry, or false if it is not part
// of these labels.
func (l *Labels) Position(entry []int32) (int, bool) {
	if len(entry) != len(l.names) {
		return 0, false
	}
	i, ok := l.positions[entryKey(entry)]
	return i, ok
}

// All iterates over (position, entry) pairs in insertion order. The entry
// slice is only valid for the duration of the yield call.
func (l *Labels) All() iter.Seq2[int, []int32] {
	return func(yield func(int, []int32) bool) {
		for i := range l.Count() {
			if !yield(i, l.entry(i)) {
				return
			}
		}
	}
}

// Equal reports whether both labels have the same names and the same entries
// in the same order.
func (l *Labels) Equal(other *Labels) bool {
	if other == nil {
		return l == nil
	}
	return slices.Equal(l.names, other.names) && slices.Equal(l.values, other.values)
}

// matching returns the set of entry positions whose values agree with the
// given (names, values) selection. The selection names must form a subset of
// the label names.
func (l *Labels) matching(names []string, values []int32) (*roaring.Bitmap, error) {
	l.indexOnce.Do(l.buildIndex)

	result := roaring.New()
	result.AddRange(0, uint64(l.Count()))
	for i, name := range names {
		dim, ok := l.NameIndex(name)
		if !ok {
			return nil, invalidParameterf("%q is not a variable of these labels", name)
		}
		bm := l.index[dim][values[i]]
		if bm == nil {
			return roaring.New(), nil
		}
		result.And(bm)
	}
	return result, nil
}

func (l *Labels) buildIndex() {
	l.index = make([]map[int32]*roaring.Bitmap, len(l.names))
	for dim := range l.names {
		l.index[dim] = make(map[int32]*roaring.Bitmap)
	}
	for i := range l.Count() {
		for dim, v := range l.entry(i) {
			bm := l.index[dim][v]
			if bm == nil {
				bm = roaring.New()
				l.index[dim][v] = bm
			}
			bm.Add(uint32(i))
		}
	}
}

// entryKey packs an entry into a string usable as a map key.
func entryKey(entry []int32) string {
	buf := make([]byte, 4*len(entry))
	for i, v := range entry {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
	}
	return string(buf)
}

// compareEntries orders integer tuples lexicographically, first value major.
func compareEntries(a, b []int32) int {
	return slices.Compare(a, b)
}
