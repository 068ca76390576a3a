package tensormap

import "fmt"

// BlockFromArray wraps an array of rank two or more in a block with
// generated labels: samples are named "sample", the middle axes
// "component_1", "component_2" and so on, and the last axis "property",
// each numbered 0 through its extent minus one. The generated labels carry
// no meaning beyond positional indexing; the block has no gradients.
func BlockFromArray(values *Array) (*Block, error) {
	if values == nil {
		return nil, invalidParameterf("block values must not be nil")
	}
	shape := values.shape
	if len(shape) < 2 {
		return nil, invalidParameterf(
			"array must have at least two axes to form a block, got %d", len(shape),
		)
	}

	samples, err := RangeLabels("sample", shape[0])
	if err != nil {
		return nil, err
	}
	components := make([]*Labels, len(shape)-2)
	for i := range components {
		components[i], err = RangeLabels(fmt.Sprintf("component_%d", i+1), shape[1+i])
		if err != nil {
			return nil, err
		}
	}
	properties, err := RangeLabels("property", shape[len(shape)-1])
	if err != nil {
		return nil, err
	}
	return NewBlock(values, samples, components, properties)
}
