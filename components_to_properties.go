package tensormap

import "slices"

// ComponentsToProperties moves the given variables from the component labels
// into the property labels, for each block of this tensor map.
//
// This is a per-block operation, no blocks are merged. The moved component
// entries become a prefix of the property labels, one new property entry per
// (component entry, old property entry) pair; the array is transposed so the
// moved extents multiply into the property axis. The total cell count of
// every block is preserved. The operation either fully commits or leaves the
// map unchanged.
func (t *TensorMap) ComponentsToProperties(variables ...string) error {
	if len(variables) == 0 {
		return invalidParameterf("at least one variable name is required")
	}
	seen := make(map[string]struct{}, len(variables))
	for _, name := range variables {
		if _, ok := seen[name]; ok {
			return invalidParameterf("variable %q is requested more than once", name)
		}
		seen[name] = struct{}{}
	}

	blocks := make([]*Block, len(t.blocks))
	for i, b := range t.blocks {
		moved, err := blockComponentsToProperties(b, variables)
		if err != nil {
			return err
		}
		blocks[i] = moved
	}
	t.blocks = blocks
	return nil
}

func blockComponentsToProperties(b *Block, variables []string) (*Block, error) {
	for _, name := range variables {
		if _, ok := b.properties.NameIndex(name); ok {
			return nil, invalidParameterf(
				"variable %q is already a property variable of this block", name,
			)
		}
	}

	moved, kept, err := splitComponentAxes(b.components, variables)
	if err != nil {
		return nil, err
	}

	newProperties, err := componentProductProperties(b.components, moved, b.properties)
	if err != nil {
		return nil, err
	}
	keptComponents := make([]*Labels, len(kept))
	for i, axis := range kept {
		keptComponents[i] = b.components[axis]
	}

	result, err := NewBlock(
		foldComponentsIntoProperties(b.values, moved, kept),
		b.samples, keptComponents, newProperties,
	)
	if err != nil {
		return nil, err
	}

	for _, name := range b.gradientNames {
		g := b.gradients[name]
		gradMoved, gradKept, err := splitComponentAxes(g.components, variables)
		if err != nil {
			return nil, err
		}
		// The gradient mirrors the parent's moved axes, so both fold to the
		// same property labels.
		if len(gradMoved) != len(moved) {
			return nil, invalidParameterf(
				"gradient %q component axes differ from the block's", name,
			)
		}
		for i, axis := range gradMoved {
			if !g.components[axis].Equal(b.components[moved[i]]) {
				return nil, invalidParameterf(
					"gradient %q component labels differ from the block's", name,
				)
			}
		}
		gradKeptComponents := make([]*Labels, len(gradKept))
		for i, axis := range gradKept {
			gradKeptComponents[i] = g.components[axis]
		}
		gradient, err := NewBlock(
			foldComponentsIntoProperties(g.values, gradMoved, gradKept),
			g.samples, gradKeptComponents, newProperties,
		)
		if err != nil {
			return nil, err
		}
		if err := result.AddGradient(name, gradient); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// splitComponentAxes resolves the requested variables to component axes. A
// requested variable selects the whole axis it names; partially selected
// axes and variables matching no axis are rejected. Moved axes are returned
// in their original order.
func splitComponentAxes(components []*Labels, variables []string) (moved, kept []int, err error) {
	covered := make(map[string]int, len(variables))
	for axis, component := range components {
		selected := 0
		for _, name := range component.names {
			if slices.Contains(variables, name) {
				if prev, ok := covered[name]; ok {
					return nil, nil, invalidParameterf(
						"variable %q appears in component axes %d and %d", name, prev, axis,
					)
				}
				covered[name] = axis
				selected++
			}
		}
		switch selected {
		case 0:
			kept = append(kept, axis)
		case component.Arity():
			moved = append(moved, axis)
		default:
			return nil, nil, invalidParameterf(
				"can not move only part of the variables of component axis %d", axis,
			)
		}
	}
	for _, name := range variables {
		if _, ok := covered[name]; !ok {
			return nil, nil, invalidParameterf(
				"%q is not a variable of the component labels", name,
			)
		}
	}
	return moved, kept, nil
}

// componentProductProperties builds the property labels of a folded block:
// the cartesian product of the moved component entries (axis-major) with the
// old property entries.
func componentProductProperties(components []*Labels, moved []int, properties *Labels) (*Labels, error) {
	names := make([]string, 0, properties.Arity())
	for _, axis := range moved {
		names = append(names, components[axis].names...)
	}
	names = append(names, properties.names...)

	entries := [][]int32{{}}
	for _, axis := range moved {
		component := components[axis]
		next := make([][]int32, 0, len(entries)*component.Count())
		for _, prefix := range entries {
			for _, entry := range component.All() {
				next = append(next, concatEntries(prefix, entry))
			}
		}
		entries = next
	}
	full := make([][]int32, 0, len(entries)*properties.Count())
	for _, prefix := range entries {
		for _, p := range properties.All() {
			full = append(full, concatEntries(prefix, p))
		}
	}
	return NewLabels(names, full)
}

// foldComponentsIntoProperties transposes the moved component axes to sit
// just before the property axis and merges them into it. moved and kept are
// component axis indices; the sample and property axes stay in place.
func foldComponentsIntoProperties(a *Array, moved, kept []int) *Array {
	rank := a.Rank()
	// New full axis order: samples, kept components, moved components,
	// properties.
	order := make([]int, 0, rank)
	order = append(order, 0)
	for _, axis := range kept {
		order = append(order, 1+axis)
	}
	for _, axis := range moved {
		order = append(order, 1+axis)
	}
	order = append(order, rank-1)

	fullShape := make([]int, rank)
	for newPos, oldAxis := range order {
		fullShape[newPos] = a.shape[oldAxis]
	}
	fullStrides := rowMajorStrides(fullShape)
	dstStrideOf := make([]int, rank)
	for newPos, oldAxis := range order {
		dstStrideOf[oldAxis] = fullStrides[newPos]
	}

	folded := a.shape[rank-1]
	for _, axis := range moved {
		folded *= a.shape[1+axis]
	}
	shape := make([]int, 0, 2+len(kept))
	shape = append(shape, a.shape[0])
	for _, axis := range kept {
		shape = append(shape, a.shape[1+axis])
	}
	shape = append(shape, folded)
	dst := NewArray(shape...)

	index := make([]int, rank)
	for _, v := range a.data {
		off := 0
		for axis, x := range index {
			off += x * dstStrideOf[axis]
		}
		dst.data[off] = v

		for axis := rank - 1; axis >= 0; axis-- {
			index[axis]++
			if index[axis] < a.shape[axis] {
				break
			}
			index[axis] = 0
		}
	}
	return dst
}
