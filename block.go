package tensormap

import "slices"

// Block is one dense array together with the labels describing its axes:
// axis 0 is governed by the sample labels, the middle axes by zero or more
// component labels, and the last axis by the property labels.
//
// A block optionally carries named gradients. A gradient is itself shaped
// like a block; its sample labels lead with a "sample" variable indexing the
// parent's sample rows, and its property labels are shared with the parent.
type Block struct {
	values     *Array
	samples    *Labels
	components []*Labels
	properties *Labels

	gradients     map[string]*Block
	gradientNames []string

	isGradient bool
}

// NewBlock builds a block from an array and the labels governing its axes.
// It returns ErrInvalidParameter if the array rank is not
// 2+len(components), or if any axis extent disagrees with the count of its
// governing labels.
func NewBlock(values *Array, samples *Labels, components []*Labels, properties *Labels) (*Block, error) {
	if values == nil || samples == nil || properties == nil {
		return nil, invalidParameterf("block values, samples and properties must not be nil")
	}
	shape := values.shape
	if len(shape) != 2+len(components) {
		return nil, invalidParameterf(
			"array has rank %d, expected %d for %d component axes",
			len(shape), 2+len(components), len(components),
		)
	}
	if shape[0] != samples.Count() {
		return nil, invalidParameterf(
			"array axis 0 has %d rows, sample labels have %d entries",
			shape[0], samples.Count(),
		)
	}
	for i, component := range components {
		if component == nil {
			return nil, invalidParameterf("component labels %d must not be nil", i)
		}
		if shape[1+i] != component.Count() {
			return nil, invalidParameterf(
				"array axis %d has extent %d, component labels have %d entries",
				1+i, shape[1+i], component.Count(),
			)
		}
	}
	if shape[len(shape)-1] != properties.Count() {
		return nil, invalidParameterf(
			"array last axis has extent %d, property labels have %d entries",
			shape[len(shape)-1], properties.Count(),
		)
	}
	return &Block{
		values:     values,
		samples:    samples,
		components: slices.Clone(components),
		properties: properties,
		gradients:  make(map[string]*Block),
	}, nil
}

// Values returns the block's array. The array aliases internal storage and
// is invalidated by any reshape of the owning tensor map.
func (b *Block) Values() *Array {
	return b.values
}

// Samples returns the labels governing axis 0.
func (b *Block) Samples() *Labels {
	return b.samples
}

// Components returns the labels governing the middle axes, in order.
func (b *Block) Components() []*Labels {
	return slices.Clone(b.components)
}

// Properties returns the labels governing the last axis.
func (b *Block) Properties() *Labels {
	return b.properties
}

// AddGradient attaches a gradient block under the given name. The gradient's
// property labels must equal the parent's, its sample labels must lead with
// a "sample" variable, and every "sample" value must be a valid row index of
// the parent. Registering the same name twice, or attaching a gradient that
// itself carries gradients, is rejected.
func (b *Block) AddGradient(name string, gradient *Block) error {
	if gradient == nil {
		return invalidParameterf("gradient block must not be nil")
	}
	if _, ok := b.gradients[name]; ok {
		return invalidParameterf("gradient %q is already registered on this block", name)
	}
	if b.isGradient {
		return invalidParameterf("gradients of gradients are not supported")
	}
	if len(gradient.gradientNames) != 0 {
		return invalidParameterf("gradient %q must not carry gradients of its own", name)
	}
	if !gradient.properties.Equal(b.properties) {
		return invalidParameterf(
			"gradient %q property labels differ from the block's property labels", name,
		)
	}
	if gradient.samples.Arity() == 0 || gradient.samples.names[0] != "sample" {
		return invalidParameterf(
			"gradient %q sample labels must start with a variable named 'sample'", name,
		)
	}
	limit := int32(b.samples.Count())
	for i, entry := range gradient.samples.All() {
		if entry[0] < 0 || entry[0] >= limit {
			return invalidParameterf(
				"gradient %q row %d references sample %d, block has %d samples",
				name, i, entry[0], limit,
			)
		}
	}
	gradient.isGradient = true
	b.gradients[name] = gradient
	b.gradientNames = append(b.gradientNames, name)
	return nil
}

// GradientList returns the gradient names in registration order.
func (b *Block) GradientList() []string {
	return slices.Clone(b.gradientNames)
}

// Gradient returns the gradient registered under name, if any.
func (b *Block) Gradient(name string) (*Block, bool) {
	g, ok := b.gradients[name]
	return g, ok
}
