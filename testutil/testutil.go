// Package testutil provides fixtures for tests and benchmarks.
//
// The main fixture is a spherical-expansion style tensor map: 27 blocks
// keyed by [l, center_species, neighbor_species], each with a
// spherical_harmonics_m component axis of extent 2l+1 and a "positions"
// gradient. It mirrors the shape of real per-atom-environment feature data
// while keeping every cell value deterministic.
package testutil

import (
	"github.com/hupe1980/tensormap"
)

// KeyNames are the key variable names of the spherical expansion fixture.
var KeyNames = []string{"l", "center_species", "neighbor_species"}

// CellValue returns the deterministic value stored at flat cell index i of
// block id in the fixture. Tests use it to tell real cells from zero
// padding.
func CellValue(id, i int) float64 {
	return float64(id*1_000_000 + i + 1)
}

// SphericalExpansion builds the 27-block fixture map.
//
// Keys iterate l in 0..2, center_species in 1..3, neighbor_species in 1..3,
// row-major. Every block has 9 samples [structure, atom] (3x3), one
// component axis spherical_harmonics_m with entries -l..l, and 3 properties
// [n]. Each block carries a "positions" gradient with 27 samples
// [sample, structure, atom] and component axes
// [gradient_direction, spherical_harmonics_m].
func SphericalExpansion() *tensormap.TensorMap {
	var keyEntries [][]int32
	for l := int32(0); l < 3; l++ {
		for center := int32(1); center <= 3; center++ {
			for neighbor := int32(1); neighbor <= 3; neighbor++ {
				keyEntries = append(keyEntries, []int32{l, center, neighbor})
			}
		}
	}
	keys := tensormap.MustLabels(KeyNames, keyEntries)

	blocks := make([]*tensormap.Block, keys.Count())
	for id := range blocks {
		blocks[id] = fixtureBlock(id, int(keyEntries[id][0]))
	}

	t, err := tensormap.New(keys, blocks)
	if err != nil {
		panic(err)
	}
	return t
}

func fixtureBlock(id, l int) *tensormap.Block {
	samples := sampleLabels()
	components := []*tensormap.Labels{harmonics(l)}
	properties := propertyLabels()

	values := filledArray(id, samples.Count(), 2*l+1, properties.Count())
	block, err := tensormap.NewBlock(values, samples, components, properties)
	if err != nil {
		panic(err)
	}

	gradient, err := tensormap.NewBlock(
		filledArray(id+100, 27, 3, 2*l+1, properties.Count()),
		gradientSampleLabels(),
		[]*tensormap.Labels{directions(), harmonics(l)},
		properties,
	)
	if err != nil {
		panic(err)
	}
	if err := block.AddGradient("positions", gradient); err != nil {
		panic(err)
	}
	return block
}

// sampleLabels enumerates 3 structures with 3 atoms each.
func sampleLabels() *tensormap.Labels {
	var entries [][]int32
	for structure := int32(0); structure < 3; structure++ {
		for atom := int32(0); atom < 3; atom++ {
			entries = append(entries, []int32{structure, atom})
		}
	}
	return tensormap.MustLabels([]string{"structure", "atom"}, entries)
}

// gradientSampleLabels references every parent sample once per atom of its
// structure: 9 parent samples times 3 atoms.
func gradientSampleLabels() *tensormap.Labels {
	var entries [][]int32
	sample := int32(0)
	for structure := int32(0); structure < 3; structure++ {
		for atom := int32(0); atom < 3; atom++ {
			for wrt := int32(0); wrt < 3; wrt++ {
				entries = append(entries, []int32{sample, structure, wrt})
			}
			sample++
		}
	}
	return tensormap.MustLabels([]string{"sample", "structure", "atom"}, entries)
}

func harmonics(l int) *tensormap.Labels {
	var entries [][]int32
	for m := -l; m <= l; m++ {
		entries = append(entries, []int32{int32(m)})
	}
	return tensormap.MustLabels([]string{"spherical_harmonics_m"}, entries)
}

func directions() *tensormap.Labels {
	return tensormap.MustLabels([]string{"gradient_direction"}, [][]int32{{0}, {1}, {2}})
}

func propertyLabels() *tensormap.Labels {
	return tensormap.MustLabels([]string{"n"}, [][]int32{{0}, {1}, {2}})
}

func filledArray(id int, shape ...int) *tensormap.Array {
	arr := tensormap.NewArray(shape...)
	data := arr.Data()
	for i := range data {
		data[i] = CellValue(id, i)
	}
	return arr
}
