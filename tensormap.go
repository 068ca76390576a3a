package tensormap

import "slices"

// TensorMap is an ordered, key-addressable collection of blocks. The i-th
// key entry describes the i-th block. Blocks in the same map may have
// entirely different sample, component and property structure.
//
// A tensor map exclusively owns its keys and blocks: blocks moved in through
// New must not be reused or attached to another map. Reshape operations
// replace the keys and blocks wholesale; concurrent readers are safe only
// while no reshape is in flight.
type TensorMap struct {
	keys   *Labels
	blocks []*Block
}

// New builds a tensor map from keys and one block per key entry. It returns
// ErrInvalidParameter if the counts disagree or if the same block instance
// appears more than once: construction moves each block in exactly once.
func New(keys *Labels, blocks []*Block) (*TensorMap, error) {
	if keys == nil {
		return nil, invalidParameterf("tensor map keys must not be nil")
	}
	if keys.Count() != len(blocks) {
		return nil, invalidParameterf(
			"expected %d blocks for %d keys, got %d", keys.Count(), keys.Count(), len(blocks),
		)
	}
	seen := make(map[*Block]struct{}, len(blocks))
	for i, block := range blocks {
		if block == nil {
			return nil, invalidParameterf("block %d must not be nil", i)
		}
		if _, ok := seen[block]; ok {
			return nil, invalidParameterf(
				"got the same block more than once when constructing a tensor map",
			)
		}
		seen[block] = struct{}{}
	}
	return &TensorMap{
		keys:   keys,
		blocks: slices.Clone(blocks),
	}, nil
}

// Keys returns the labels describing the blocks. The returned labels alias
// internal storage and are invalidated by any reshape operation.
func (t *TensorMap) Keys() *Labels {
	return t.keys
}

// Len returns the number of blocks.
func (t *TensorMap) Len() int {
	return len(t.blocks)
}

// BlockByID returns the i-th block. It returns ErrOutOfBounds if i is past
// the end of the block sequence.
func (t *TensorMap) BlockByID(i int) (*Block, error) {
	if i < 0 || i >= len(t.blocks) {
		return nil, outOfBoundsf("block index %d, tensor map has %d blocks", i, len(t.blocks))
	}
	return t.blocks[i], nil
}

// Block returns the single block addressed by the given selection. The
// selection names must equal the key names exactly, and the selection must
// contain exactly one entry matching exactly one key.
func (t *TensorMap) Block(selection *Labels) (*Block, error) {
	if selection == nil {
		return nil, invalidParameterf("selection must not be nil")
	}
	if !slices.Equal(selection.names, t.keys.names) {
		return nil, invalidParameterf(
			"selection names %v do not match the key names %v",
			selection.names, t.keys.names,
		)
	}
	if selection.Count() != 1 {
		return nil, invalidParameterf(
			"selection must contain exactly one entry, got %d", selection.Count(),
		)
	}
	i, ok := t.keys.Position(selection.entry(0))
	if !ok {
		return nil, invalidParameterf("no block matches the selection %v", selection.entry(0))
	}
	return t.blocks[i], nil
}

// BlocksMatching returns the ids of all blocks whose key agrees with the
// given selection. The selection names may be any subset of the key names
// and the selection must contain exactly one entry. Ids are returned in
// ascending order.
func (t *TensorMap) BlocksMatching(selection *Labels) ([]int, error) {
	if selection == nil {
		return nil, invalidParameterf("selection must not be nil")
	}
	if selection.Count() != 1 {
		return nil, invalidParameterf(
			"selection must contain exactly one entry, got %d", selection.Count(),
		)
	}
	bm, err := t.keys.matching(selection.names, selection.entry(0))
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		ids = append(ids, int(it.Next()))
	}
	return ids, nil
}

// DropBlocks removes the blocks addressed by the given selection. The
// selection names must equal the key names exactly; every selection entry
// must match an existing key.
func (t *TensorMap) DropBlocks(selection *Labels) error {
	if selection == nil {
		return invalidParameterf("selection must not be nil")
	}
	if !slices.Equal(selection.names, t.keys.names) {
		return invalidParameterf(
			"selection names %v do not match the key names %v",
			selection.names, t.keys.names,
		)
	}
	drop := make(map[int]struct{}, selection.Count())
	for _, entry := range selection.All() {
		i, ok := t.keys.Position(entry)
		if !ok {
			return invalidParameterf("no block matches the key %v", entry)
		}
		drop[i] = struct{}{}
	}

	var keptEntries [][]int32
	var keptBlocks []*Block
	for i, entry := range t.keys.All() {
		if _, ok := drop[i]; ok {
			continue
		}
		keptEntries = append(keptEntries, slices.Clone(entry))
		keptBlocks = append(keptBlocks, t.blocks[i])
	}
	if len(keptEntries) == 0 {
		return invalidParameterf("can not drop every block of a tensor map")
	}
	keys, err := NewLabels(t.keys.names, keptEntries)
	if err != nil {
		return err
	}
	t.keys = keys
	t.blocks = keptBlocks
	return nil
}
