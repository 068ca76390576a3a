package tensormap

import "slices"

// Array is a dense, row-major array of float64 cells. The core treats the
// cells as opaque payload: the only operations are shape bookkeeping and
// cell moves during reshapes.
type Array struct {
	shape   []int
	strides []int
	data    []float64
}

// NewArray allocates a zero-filled array with the given shape. Negative
// extents panic; a zero extent yields an empty array.
func NewArray(shape ...int) *Array {
	total := 1
	for _, dim := range shape {
		if dim < 0 {
			panic("tensormap: negative array extent")
		}
		total *= dim
	}
	a := &Array{
		shape: slices.Clone(shape),
		data:  make([]float64, total),
	}
	a.strides = rowMajorStrides(a.shape)
	return a
}

// NewArrayFrom wraps existing data in an array of the given shape. It
// returns ErrInvalidParameter if the data length does not match the shape.
func NewArrayFrom(data []float64, shape ...int) (*Array, error) {
	total := 1
	for _, dim := range shape {
		if dim < 0 {
			return nil, invalidParameterf("negative array extent %d", dim)
		}
		total *= dim
	}
	if len(data) != total {
		return nil, invalidParameterf(
			"array data has %d cells, shape %v requires %d", len(data), shape, total,
		)
	}
	return &Array{
		shape:   slices.Clone(shape),
		strides: rowMajorStrides(shape),
		data:    data,
	}, nil
}

// Shape returns a copy of the array shape.
func (a *Array) Shape() []int {
	return slices.Clone(a.shape)
}

// Rank returns the number of axes.
func (a *Array) Rank() int {
	return len(a.shape)
}

// Len returns the total number of cells.
func (a *Array) Len() int {
	return len(a.data)
}

// Data returns the underlying cells in row-major order. The slice aliases
// internal storage.
func (a *Array) Data() []float64 {
	return a.data
}

// At returns the cell at the given multi-index. It panics on rank or bounds
// violations, mirroring slice indexing.
func (a *Array) At(index ...int) float64 {
	return a.data[a.offset(index)]
}

// Set stores v at the given multi-index.
func (a *Array) Set(v float64, index ...int) {
	a.data[a.offset(index)] = v
}

func (a *Array) offset(index []int) int {
	if len(index) != len(a.shape) {
		panic("tensormap: array index rank mismatch")
	}
	off := 0
	for i, x := range index {
		if x < 0 || x >= a.shape[i] {
			panic("tensormap: array index out of range")
		}
		off += x * a.strides[i]
	}
	return off
}

// row returns the contiguous cells of one axis-0 row. Only valid when the
// array is row-major contiguous, which every array built here is.
func (a *Array) row(i int) []float64 {
	stride := a.strides[0]
	return a.data[i*stride : (i+1)*stride]
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}
