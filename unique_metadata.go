package tensormap

import "slices"

// Axis selects which labels of a block a metadata operation applies to.
type Axis string

const (
	// AxisSamples selects the labels governing axis 0.
	AxisSamples Axis = "samples"
	// AxisProperties selects the labels governing the last axis.
	AxisProperties Axis = "properties"
)

// UniqueMetadata returns the sorted distinct values the named variables
// take along the given axis, across every block of the map. A non-empty
// gradient name inspects the blocks' gradients under that name instead;
// every block must carry the gradient. The returned labels have one
// variable per requested name.
func (t *TensorMap) UniqueMetadata(axis Axis, names []string, gradient string) (*Labels, error) {
	blocks := make([]*Block, 0, len(t.blocks))
	for i, block := range t.blocks {
		if gradient == "" {
			blocks = append(blocks, block)
			continue
		}
		g, ok := block.Gradient(gradient)
		if !ok {
			return nil, invalidParameterf(
				"block %d has no gradient with respect to %q", i, gradient,
			)
		}
		blocks = append(blocks, g)
	}
	return uniqueFromBlocks(blocks, axis, names)
}

// UniqueMetadata returns the sorted distinct values the named variables
// take along the given axis of this block, or of its gradient when a
// non-empty gradient name is given.
func (b *Block) UniqueMetadata(axis Axis, names []string, gradient string) (*Labels, error) {
	block := b
	if gradient != "" {
		g, ok := b.Gradient(gradient)
		if !ok {
			return nil, invalidParameterf("block has no gradient with respect to %q", gradient)
		}
		block = g
	}
	return uniqueFromBlocks([]*Block{block}, axis, names)
}

func uniqueFromBlocks(blocks []*Block, axis Axis, names []string) (*Labels, error) {
	if axis != AxisSamples && axis != AxisProperties {
		return nil, invalidParameterf(
			"axis must be %q or %q, got %q", AxisSamples, AxisProperties, axis,
		)
	}
	if len(names) == 0 {
		return nil, invalidParameterf("unique metadata needs at least one variable name")
	}

	seen := make(map[string]struct{})
	var entries [][]int32
	for _, block := range blocks {
		labels := block.samples
		if axis == AxisProperties {
			labels = block.properties
		}
		dims := make([]int, len(names))
		for i, name := range names {
			d, ok := labels.NameIndex(name)
			if !ok {
				return nil, invalidParameterf(
					"%q is not a variable of the block's %s labels", name, axis,
				)
			}
			dims[i] = d
		}
		for _, entry := range labels.All() {
			row := make([]int32, len(dims))
			for i, d := range dims {
				row[i] = entry[d]
			}
			key := entryKey(row)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			entries = append(entries, row)
		}
	}
	slices.SortFunc(entries, compareEntries)
	return NewLabels(names, entries)
}
