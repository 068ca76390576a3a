package tensormap

import "slices"

// mergeGroup collects the blocks sharing one residual key, in key order.
type mergeGroup struct {
	residual []int32
	blockIDs []int
}

// splitKeyVariables resolves the requested variable names against the key
// names. It returns the key column indices of the requested variables and of
// the residual (remaining) variables, validating that every requested name
// exists and is requested only once.
func splitKeyVariables(keys *Labels, variables []string) (extracted, residual []int, err error) {
	if len(variables) == 0 {
		return nil, nil, invalidParameterf("at least one variable name is required")
	}
	seen := make(map[string]struct{}, len(variables))
	for _, name := range variables {
		if _, ok := seen[name]; ok {
			return nil, nil, invalidParameterf("variable %q is requested more than once", name)
		}
		seen[name] = struct{}{}
		dim, ok := keys.NameIndex(name)
		if !ok {
			return nil, nil, invalidParameterf("%q is not a variable of the keys", name)
		}
		extracted = append(extracted, dim)
	}
	for dim := range keys.names {
		if !slices.Contains(extracted, dim) {
			residual = append(residual, dim)
		}
	}
	return extracted, residual, nil
}

// groupByResidual partitions the key entries by their residual columns,
// keeping groups in first-seen order.
func groupByResidual(keys *Labels, residual []int) []mergeGroup {
	var groups []mergeGroup
	byKey := make(map[string]int)
	for i, entry := range keys.All() {
		res := pickColumns(entry, residual)
		key := entryKey(res)
		gi, ok := byKey[key]
		if !ok {
			gi = len(groups)
			byKey[key] = gi
			groups = append(groups, mergeGroup{residual: res})
		}
		groups[gi].blockIDs = append(groups[gi].blockIDs, i)
	}
	return groups
}

// pickColumns copies the given columns out of an entry.
func pickColumns(entry []int32, dims []int) []int32 {
	out := make([]int32, len(dims))
	for i, dim := range dims {
		out[i] = entry[dim]
	}
	return out
}

// residualKeys builds the new key labels out of the grouped residual
// entries. With no residual variables left, the canonical single labels are
// used instead.
func residualKeys(keys *Labels, residual []int, groups []mergeGroup) (*Labels, error) {
	if len(residual) == 0 {
		return SingleLabels(), nil
	}
	names := make([]string, len(residual))
	for i, dim := range residual {
		names[i] = keys.names[dim]
	}
	entries := make([][]int32, len(groups))
	for i, g := range groups {
		entries[i] = g.residual
	}
	return NewLabels(names, entries)
}

// checkMergeAgreement verifies the structural agreement required to merge the
// blocks of one group: identical sample names, identical component labels
// and identical gradient name sets.
func checkMergeAgreement(first *Block, blocks []*Block) error {
	for _, b := range blocks[1:] {
		if !slices.Equal(b.samples.names, first.samples.names) {
			return invalidParameterf(
				"can not merge blocks: the sample variable names do not match",
			)
		}
		if len(b.components) != len(first.components) {
			return invalidParameterf(
				"can not merge blocks: the number of component axes does not match",
			)
		}
		for i := range b.components {
			if !b.components[i].Equal(first.components[i]) {
				return invalidParameterf(
					"can not merge blocks: the component labels do not match",
				)
			}
		}
		if !slices.Equal(sortedClone(b.gradientNames), sortedClone(first.gradientNames)) {
			return invalidParameterf(
				"can not merge blocks: the gradient names do not match",
			)
		}
	}
	return nil
}

func sortedClone(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

// sortedEntryUnion deduplicates and lexicographically sorts integer tuples.
// It returns the sorted entries and, for each input, its position in the
// sorted result.
func sortedEntryUnion(entries [][]int32) (sorted [][]int32, positions []int) {
	index := make(map[string]int, len(entries))
	for _, entry := range entries {
		key := entryKey(entry)
		if _, ok := index[key]; !ok {
			index[key] = 0
			sorted = append(sorted, entry)
		}
	}
	slices.SortFunc(sorted, compareEntries)
	for i, entry := range sorted {
		index[entryKey(entry)] = i
	}
	positions = make([]int, len(entries))
	for i, entry := range entries {
		positions[i] = index[entryKey(entry)]
	}
	return sorted, positions
}
