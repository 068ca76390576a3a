// Package capi exposes the tensor map model through opaque integer handles
// and status codes, the contract expected by foreign callers. No Go types
// cross the boundary: every object lives in a Registry, every call reports a
// Status, and the message behind the most recent failure is available via
// LastError. Panics inside a call never escape; they surface as
// StatusInternalError.
package capi

import (
	"fmt"
	"sync"

	"github.com/hupe1980/tensormap"
	"github.com/hupe1980/tensormap/codec"
)

// Handle identifies an object held by a Registry. The zero handle is never
// valid.
type Handle uint64

// slot wraps a registered object. Borrowed slots reference state owned by
// another object (a block inside a map) and cannot transfer ownership again.
type slot struct {
	value    any
	borrowed bool
}

// Registry owns the objects behind handles. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	next    Handle
	slots   map[Handle]*slot
	lastErr string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		slots: make(map[Handle]*slot),
	}
}

// LastError returns the message of the most recent failed call, or the
// empty string if the last call succeeded.
func (r *Registry) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Free releases a handle. Freeing an unknown or already-freed handle is a
// reported error, not a crash.
func (r *Registry) Free(h Handle) (st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	if _, ok := r.slots[h]; !ok {
		return r.fail(StatusInvalidParameter, "handle %d is not live", h)
	}
	delete(r.slots, h)
	return r.ok()
}

// CreateLabels registers a new label set. entries is row-major: count rows
// of len(names) values each.
func (r *Registry) CreateLabels(names []string, entries [][]int32) (h Handle, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	labels, err := tensormap.NewLabels(names, entries)
	if err != nil {
		return 0, r.failErr(err)
	}
	return r.register(labels, false), r.ok()
}

// LabelsCount returns the number of entries of a label set.
func (r *Registry) LabelsCount(h Handle) (count int, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	labels, status := lookup[*tensormap.Labels](r, h)
	if status != StatusSuccess {
		return 0, status
	}
	return labels.Count(), r.ok()
}

// LabelsNames returns the variable names of a label set.
func (r *Registry) LabelsNames(h Handle) (names []string, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	labels, status := lookup[*tensormap.Labels](r, h)
	if status != StatusSuccess {
		return nil, status
	}
	return labels.Names(), r.ok()
}

// CreateBlock registers a new block. values holds the dense cells in
// row-major order for the given shape; samples, components and properties
// are label handles, which stay live and reusable.
func (r *Registry) CreateBlock(shape []int, values []float64, samples Handle, components []Handle, properties Handle) (h Handle, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	array, err := tensormap.NewArrayFrom(values, shape...)
	if err != nil {
		return 0, r.failErr(err)
	}
	sampleLabels, status := lookup[*tensormap.Labels](r, samples)
	if status != StatusSuccess {
		return 0, status
	}
	componentLabels := make([]*tensormap.Labels, len(components))
	for i, ch := range components {
		componentLabels[i], status = lookup[*tensormap.Labels](r, ch)
		if status != StatusSuccess {
			return 0, status
		}
	}
	propertyLabels, status := lookup[*tensormap.Labels](r, properties)
	if status != StatusSuccess {
		return 0, status
	}

	block, err := tensormap.NewBlock(array, sampleLabels, componentLabels, propertyLabels)
	if err != nil {
		return 0, r.failErr(err)
	}
	return r.register(block, false), r.ok()
}

// BlockAddGradient attaches a gradient block to a parent block. On success
// the gradient handle is invalidated: the parent owns the gradient.
func (r *Registry) BlockAddGradient(block Handle, parameter string, gradient Handle) (st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	parent, status := lookup[*tensormap.Block](r, block)
	if status != StatusSuccess {
		return status
	}
	grad, status := lookup[*tensormap.Block](r, gradient)
	if status != StatusSuccess {
		return status
	}
	if r.slots[gradient].borrowed {
		return r.fail(StatusInvalidParameter, "handle %d is a borrowed block and cannot transfer ownership", gradient)
	}
	if err := parent.AddGradient(parameter, grad); err != nil {
		return r.failErr(err)
	}
	delete(r.slots, gradient)
	return r.ok()
}

// CreateMap registers a new tensor map. On success every block handle is
// invalidated: the map owns the blocks. On failure all handles stay live.
func (r *Registry) CreateMap(keys Handle, blocks []Handle) (h Handle, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	keyLabels, status := lookup[*tensormap.Labels](r, keys)
	if status != StatusSuccess {
		return 0, status
	}
	blockValues := make([]*tensormap.Block, len(blocks))
	for i, bh := range blocks {
		blockValues[i], status = lookup[*tensormap.Block](r, bh)
		if status != StatusSuccess {
			return 0, status
		}
		if r.slots[bh].borrowed {
			return 0, r.fail(StatusInvalidParameter, "handle %d is a borrowed block and cannot transfer ownership", bh)
		}
	}

	t, err := tensormap.New(keyLabels, blockValues)
	if err != nil {
		return 0, r.failErr(err)
	}
	for _, bh := range blocks {
		delete(r.slots, bh)
	}
	return r.register(t, false), r.ok()
}

// MapLen returns the number of blocks in a map.
func (r *Registry) MapLen(h Handle) (n int, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	t, status := lookup[*tensormap.TensorMap](r, h)
	if status != StatusSuccess {
		return 0, status
	}
	return t.Len(), r.ok()
}

// MapKeys returns a borrowed handle to the keys of a map.
func (r *Registry) MapKeys(h Handle) (keys Handle, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	t, status := lookup[*tensormap.TensorMap](r, h)
	if status != StatusSuccess {
		return 0, status
	}
	return r.register(t.Keys(), true), r.ok()
}

// MapBlockByID returns a borrowed handle to a block of a map. The handle
// must still be freed, but it cannot transfer ownership.
func (r *Registry) MapBlockByID(h Handle, id int) (block Handle, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	t, status := lookup[*tensormap.TensorMap](r, h)
	if status != StatusSuccess {
		return 0, status
	}
	b, err := t.BlockByID(id)
	if err != nil {
		return 0, r.failErr(err)
	}
	return r.register(b, true), r.ok()
}

// MapKeysToProperties moves key variables into the property labels of each
// merged block.
func (r *Registry) MapKeysToProperties(h Handle, variables []string) (st Status) {
	return r.reshape(h, func(t *tensormap.TensorMap) error {
		return t.KeysToProperties(variables...)
	})
}

// MapKeysToSamples moves key variables into the sample labels of each
// merged block.
func (r *Registry) MapKeysToSamples(h Handle, variables []string) (st Status) {
	return r.reshape(h, func(t *tensormap.TensorMap) error {
		return t.KeysToSamples(variables...)
	})
}

// MapComponentsToProperties folds component axes into the property axis of
// every block.
func (r *Registry) MapComponentsToProperties(h Handle, variables []string) (st Status) {
	return r.reshape(h, func(t *tensormap.TensorMap) error {
		return t.ComponentsToProperties(variables...)
	})
}

// Encode serializes a map into an archive buffer.
func (r *Registry) Encode(h Handle) (data []byte, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	t, status := lookup[*tensormap.TensorMap](r, h)
	if status != StatusSuccess {
		return nil, status
	}
	data, err := codec.Encode(t)
	if err != nil {
		return nil, r.failErr(err)
	}
	return data, r.ok()
}

// Decode rebuilds a map from an archive buffer and registers it.
func (r *Registry) Decode(data []byte) (h Handle, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	t, err := codec.Decode(data)
	if err != nil {
		return 0, r.failErr(err)
	}
	return r.register(t, false), r.ok()
}

func (r *Registry) reshape(h Handle, fn func(t *tensormap.TensorMap) error) (st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverTo(&st)

	t, status := lookup[*tensormap.TensorMap](r, h)
	if status != StatusSuccess {
		return status
	}
	if err := fn(t); err != nil {
		return r.failErr(err)
	}
	return r.ok()
}

func (r *Registry) register(value any, borrowed bool) Handle {
	r.next++
	r.slots[r.next] = &slot{value: value, borrowed: borrowed}
	return r.next
}

// lookup resolves a handle to a value of type T. Callers hold r.mu.
func lookup[T any](r *Registry, h Handle) (T, Status) {
	var zero T
	s, ok := r.slots[h]
	if !ok {
		return zero, r.fail(StatusInvalidParameter, "handle %d is not live", h)
	}
	value, ok := s.value.(T)
	if !ok {
		return zero, r.fail(StatusInvalidParameter, "handle %d holds a %T", h, s.value)
	}
	return value, StatusSuccess
}

func (r *Registry) ok() Status {
	r.lastErr = ""
	return StatusSuccess
}

func (r *Registry) fail(status Status, format string, args ...any) Status {
	r.lastErr = fmt.Sprintf(format, args...)
	return status
}

func (r *Registry) failErr(err error) Status {
	r.lastErr = err.Error()
	return statusOf(err)
}

// recoverTo converts a panic inside a boundary call into
// StatusInternalError. Callers hold r.mu when it runs.
func (r *Registry) recoverTo(st *Status) {
	if p := recover(); p != nil {
		r.lastErr = fmt.Sprintf("panic: %v", p)
		*st = StatusInternalError
	}
}
