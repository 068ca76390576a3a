package tensormap

import "slices"

// KeysToProperties moves the given variables from the keys into the property
// labels of the blocks.
//
// Blocks sharing the same values for the remaining key variables are merged.
// A merged block has `variables` as its first property variables, followed
// by the original properties, with each original property entry prefixed by
// the originating block's key values. The merged sample labels are the
// lexicographically sorted union of the contributing sample labels; cells
// with no originating block read as zero. Gradients are merged the same way,
// with their "sample" column remapped to the new sample ordering.
//
// Merges that would produce duplicated property entries are rejected with
// ErrInvalidParameter. The operation either fully commits or leaves the map
// unchanged.
func (t *TensorMap) KeysToProperties(variables ...string) error {
	extracted, residual, err := splitKeyVariables(t.keys, variables)
	if err != nil {
		return err
	}
	for _, b := range t.blocks {
		for _, name := range variables {
			if _, ok := b.properties.NameIndex(name); ok {
				return invalidParameterf(
					"variable %q is already a property variable of one of the blocks", name,
				)
			}
		}
	}

	groups := groupByResidual(t.keys, residual)
	keys, err := residualKeys(t.keys, residual, groups)
	if err != nil {
		return err
	}

	blocks := make([]*Block, 0, len(groups))
	for _, g := range groups {
		merged, err := t.mergeGroupToProperties(g, extracted, variables)
		if err != nil {
			return err
		}
		blocks = append(blocks, merged)
	}

	t.keys = keys
	t.blocks = blocks
	return nil
}

func (t *TensorMap) mergeGroupToProperties(g mergeGroup, extracted []int, variables []string) (*Block, error) {
	group := make([]*Block, len(g.blockIDs))
	for i, id := range g.blockIDs {
		group[i] = t.blocks[id]
	}
	first := group[0]
	if err := checkMergeAgreement(first, group); err != nil {
		return nil, err
	}
	for _, b := range group[1:] {
		if !slices.Equal(b.properties.names, first.properties.names) {
			return nil, invalidParameterf(
				"can not merge blocks: the property variable names do not match",
			)
		}
	}

	// New property labels: variables ++ old properties, one entry per
	// (block, old property) pair, prefixed with the block's key values.
	propNames := make([]string, 0, len(variables)+first.properties.Arity())
	propNames = append(propNames, variables...)
	propNames = append(propNames, first.properties.names...)

	var propEntries [][]int32
	offsets := make([]int, len(group))
	off := 0
	for bi, id := range g.blockIDs {
		b := t.blocks[id]
		keyValues := pickColumns(t.keys.entry(id), extracted)
		offsets[bi] = off
		for _, p := range b.properties.All() {
			propEntries = append(propEntries, concatEntries(keyValues, p))
		}
		off += b.properties.Count()
	}
	newProperties, err := NewLabels(propNames, propEntries)
	if err != nil {
		return nil, invalidParameterf(
			"merging these blocks would duplicate property entries: %v", err,
		)
	}

	// New sample labels: sorted union of the contributing sample entries.
	var allSamples [][]int32
	for _, b := range group {
		for _, s := range b.samples.All() {
			allSamples = append(allSamples, slices.Clone(s))
		}
	}
	sortedSamples, samplePositions := sortedEntryUnion(allSamples)
	newSamples, err := NewLabels(first.samples.names, sortedSamples)
	if err != nil {
		return nil, err
	}
	rowMap := make([][]int, len(group))
	cursor := 0
	for bi, b := range group {
		rowMap[bi] = samplePositions[cursor : cursor+b.samples.Count()]
		cursor += b.samples.Count()
	}

	merged, err := NewBlock(
		mergePropertyCells(group, rowMap, offsets, newSamples.Count(), first.components, newProperties.Count()),
		newSamples, first.components, newProperties,
	)
	if err != nil {
		return nil, err
	}

	for _, name := range first.gradientNames {
		gradient, err := mergeGradientToProperties(group, rowMap, offsets, name, newProperties)
		if err != nil {
			return nil, err
		}
		if err := merged.AddGradient(name, gradient); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// mergePropertyCells assembles the merged value array, zero-filling cells
// with no originating block.
func mergePropertyCells(group []*Block, rowMap [][]int, offsets []int, sampleCount int, components []*Labels, propertyCount int) *Array {
	shape := make([]int, 0, 2+len(components))
	shape = append(shape, sampleCount)
	for _, c := range components {
		shape = append(shape, c.Count())
	}
	shape = append(shape, propertyCount)
	arr := NewArray(shape...)

	for bi, b := range group {
		copyRows(arr, b.values, rowMap[bi], offsets[bi], b.properties.Count(), propertyCount)
	}
	return arr
}

func mergeGradientToProperties(group []*Block, rowMap [][]int, offsets []int, name string, newProperties *Labels) (*Block, error) {
	gradients := make([]*Block, len(group))
	for i, b := range group {
		g, ok := b.gradients[name]
		if !ok {
			return nil, invalidParameterf("gradient %q is missing from one of the merged blocks", name)
		}
		gradients[i] = g
	}
	first := gradients[0]
	if err := checkMergeAgreement(first, gradients); err != nil {
		return nil, err
	}

	// Gradient sample entries with the "sample" column remapped to the
	// merged sample ordering, then sorted like regular samples.
	var allRows [][]int32
	for gi, g := range gradients {
		for _, entry := range g.samples.All() {
			row := slices.Clone(entry)
			row[0] = int32(rowMap[gi][entry[0]])
			allRows = append(allRows, row)
		}
	}
	sortedRows, rowPositions := sortedEntryUnion(allRows)
	gradSamples, err := NewLabels(first.samples.names, sortedRows)
	if err != nil {
		return nil, err
	}

	shape := make([]int, 0, 2+len(first.components))
	shape = append(shape, gradSamples.Count())
	for _, c := range first.components {
		shape = append(shape, c.Count())
	}
	shape = append(shape, newProperties.Count())
	arr := NewArray(shape...)

	cursor := 0
	for gi, g := range gradients {
		rows := rowPositions[cursor : cursor+g.samples.Count()]
		cursor += g.samples.Count()
		copyRows(arr, g.values, rows, offsets[gi], g.properties.Count(), newProperties.Count())
	}

	return NewBlock(arr, gradSamples, first.components, newProperties)
}

// copyRows moves every axis-0 row of src into dst at the given destination
// rows, placing the source property columns at propertyOffset within the
// wider destination property axis.
func copyRows(dst, src *Array, dstRows []int, propertyOffset, srcProperties, dstProperties int) {
	if srcProperties == 0 {
		return
	}
	for s, dstRow := range dstRows {
		from := src.row(s)
		to := dst.row(dstRow)
		for m := 0; m*srcProperties < len(from); m++ {
			copy(
				to[m*dstProperties+propertyOffset:m*dstProperties+propertyOffset+srcProperties],
				from[m*srcProperties:(m+1)*srcProperties],
			)
		}
	}
}

func concatEntries(a, b []int32) []int32 {
	out := make([]int32, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
