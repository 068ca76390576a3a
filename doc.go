// Package tensormap provides an in-memory, label-indexed container for
// collections of dense multi-dimensional float64 arrays.
//
// It targets physical-science tensor data (per-atom-environment feature
// blocks and similar) where one monolithic array cannot represent the data:
// different subsets have different sample counts, component structure, or
// gradient availability. The model has three layers:
//
//   - Labels: an immutable, ordered set of named integer tuples with O(1)
//     value lookup. Labels describe every axis of every array.
//   - Block: one dense row-major array of rank 2+C, with a samples Labels on
//     axis 0, one component Labels per middle axis, and a properties Labels
//     on the last axis. Blocks carry named gradient blocks sharing the
//     parent's property axis.
//   - TensorMap: a keys Labels plus one Block per key entry, in strict
//     positional correspondence.
//
// # Quick Start
//
//	keys, _ := tensormap.NewLabels([]string{"l"}, [][]int32{{0}, {1}})
//	// ... build one Block per key entry ...
//	t, _ := tensormap.New(keys, []*tensormap.Block{b0, b1})
//
//	block, _ := t.BlockByID(0)
//	fmt.Println(block.Values().Shape())
//
// # Reshaping
//
// Three operations move a variable across the key/sample/component/property
// axes, merging blocks as needed:
//
//	_ = t.KeysToProperties("l")          // pads missing cells with zero
//	_ = t.KeysToSamples("center")        // requires aligned properties
//	_ = t.ComponentsToProperties("m")    // per block, no merging
//
// Each either fully commits or leaves the map unchanged.
//
// # Persistence
//
// The codec package serializes a map to a deterministic npz-style archive
// (save of a loaded archive is byte-identical), and the blobstore package
// stores archives on disk, in memory, or in object storage:
//
//	data, _ := codec.Encode(t)
//	t2, _ := codec.Decode(data)
//
//	store := blobstore.NewLocalStore("./data")
//	_ = codec.SaveTo(ctx, store, "features.npz", t)
//
// A fully built map is safe for concurrent reads. Reshape operations need
// exclusive access.
package tensormap
