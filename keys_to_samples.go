package tensormap

import "slices"

// KeysToSamples moves the given variables from the keys into the sample
// labels of the blocks.
//
// Blocks sharing the same values for the remaining key variables are merged.
// Unlike KeysToProperties there is no zero-padding fallback: every block of
// a merge group must have identical property labels, or the operation fails
// with ErrInvalidParameter. The merged sample labels have `variables` as
// their last variables, appended to each original sample entry, and the rows
// are re-sorted lexicographically. Gradients follow, with their "sample"
// column remapped. The operation either fully commits or leaves the map
// unchanged.
func (t *TensorMap) KeysToSamples(variables ...string) error {
	extracted, residual, err := splitKeyVariables(t.keys, variables)
	if err != nil {
		return err
	}
	for _, b := range t.blocks {
		for _, name := range variables {
			if _, ok := b.samples.NameIndex(name); ok {
				return invalidParameterf(
					"variable %q is already a sample variable of one of the blocks", name,
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
		merged, err := t.mergeGroupToSamples(g, extracted, variables)
		if err != nil {
			return err
		}
		blocks = append(blocks, merged)
	}

	t.keys = keys
	t.blocks = blocks
	return nil
}

func (t *TensorMap) mergeGroupToSamples(g mergeGroup, extracted []int, variables []string) (*Block, error) {
	group := make([]*Block, len(g.blockIDs))
	for i, id := range g.blockIDs {
		group[i] = t.blocks[id]
	}
	first := group[0]
	if err := checkMergeAgreement(first, group); err != nil {
		return nil, err
	}
	for _, b := range group[1:] {
		// Merging along samples requires aligned property columns; blocks
		// with differing property labels can not be merged this way.
		if !b.properties.Equal(first.properties) {
			return nil, invalidParameterf(
				"can not move keys to samples: the property labels of the merged blocks differ",
			)
		}
	}

	sampleNames := make([]string, 0, first.samples.Arity()+len(variables))
	sampleNames = append(sampleNames, first.samples.names...)
	sampleNames = append(sampleNames, variables...)

	// One new entry per (block, old sample row): old entry ++ key values,
	// re-sorted lexicographically over the full entry.
	type origin struct{ block, row int }
	var entries [][]int32
	var origins []origin
	for bi, id := range g.blockIDs {
		b := t.blocks[id]
		keyValues := pickColumns(t.keys.entry(id), extracted)
		for row, s := range b.samples.All() {
			entries = append(entries, concatEntries(s, keyValues))
			origins = append(origins, origin{block: bi, row: row})
		}
	}
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return compareEntries(entries[a], entries[b])
	})

	sortedEntries := make([][]int32, len(entries))
	rowMap := make([][]int, len(group))
	for bi, b := range group {
		rowMap[bi] = make([]int, b.samples.Count())
	}
	for newRow, i := range order {
		sortedEntries[newRow] = entries[i]
		rowMap[origins[i].block][origins[i].row] = newRow
	}
	newSamples, err := NewLabels(sampleNames, sortedEntries)
	if err != nil {
		return nil, err
	}

	shape := make([]int, 0, 2+len(first.components))
	shape = append(shape, newSamples.Count())
	for _, c := range first.components {
		shape = append(shape, c.Count())
	}
	shape = append(shape, first.properties.Count())
	arr := NewArray(shape...)
	for bi, b := range group {
		for row := range b.samples.Count() {
			copy(arr.row(rowMap[bi][row]), b.values.row(row))
		}
	}

	merged, err := NewBlock(arr, newSamples, first.components, first.properties)
	if err != nil {
		return nil, err
	}

	for _, name := range first.gradientNames {
		gradient, err := mergeGradientToSamples(group, rowMap, name)
		if err != nil {
			return nil, err
		}
		if err := merged.AddGradient(name, gradient); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func mergeGradientToSamples(group []*Block, rowMap [][]int, name string) (*Block, error) {
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

	type origin struct{ gradient, row int }
	var entries [][]int32
	var origins []origin
	for gi, g := range gradients {
		for row, entry := range g.samples.All() {
			remapped := slices.Clone(entry)
			remapped[0] = int32(rowMap[gi][entry[0]])
			entries = append(entries, remapped)
			origins = append(origins, origin{gradient: gi, row: row})
		}
	}
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return compareEntries(entries[a], entries[b])
	})

	sortedEntries := make([][]int32, len(entries))
	gradRowMap := make([][]int, len(gradients))
	for gi, g := range gradients {
		gradRowMap[gi] = make([]int, g.samples.Count())
	}
	for newRow, i := range order {
		sortedEntries[newRow] = entries[i]
		gradRowMap[origins[i].gradient][origins[i].row] = newRow
	}
	gradSamples, err := NewLabels(first.samples.names, sortedEntries)
	if err != nil {
		return nil, err
	}

	shape := make([]int, 0, 2+len(first.components))
	shape = append(shape, gradSamples.Count())
	for _, c := range first.components {
		shape = append(shape, c.Count())
	}
	shape = append(shape, first.properties.Count())
	arr := NewArray(shape...)
	for gi, g := range gradients {
		for row := range g.samples.Count() {
			copy(arr.row(gradRowMap[gi][row]), g.values.row(row))
		}
	}

	return NewBlock(arr, gradSamples, first.components, first.properties)
}
