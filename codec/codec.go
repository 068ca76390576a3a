// Package codec serializes tensor maps to a self-contained archive.
//
// The container is an uncompressed ZIP of ".npy" entries (the npz layout):
// one "keys.npy" entry for the keys, and per block one values payload plus
// one entry per label set, with nested entries per gradient. Entry names and
// ordering are canonical, so re-encoding a decoded archive reproduces the
// identical byte sequence.
//
// The codec is intentionally a breaking-change boundary: bytes written by
// one layout version must keep decoding forever, so the entry naming and the
// numeric encoding (little-endian, fixed width) are frozen.
package codec

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/klauspost/compress/flate"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tensormap"
	"github.com/hupe1980/tensormap/npy"
)

// entry is one named payload of the archive, in write order.
type entry struct {
	name string
	data []byte
}

// Encode serializes a tensor map into a single archive buffer.
func Encode(t *tensormap.TensorMap, optFns ...func(o *Options)) ([]byte, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	entries, err := encodeEntries(t, opts.Parallelism)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeEntries(&buf, entries); err != nil {
		return nil, err
	}

	return compress(buf.Bytes(), opts.Compression)
}

// writeEntries assembles the archive: every entry is stored uncompressed,
// with zero timestamps, in the given order.
func writeEntries(w io.Writer, entries []entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		ew, err := zw.CreateHeader(&zip.FileHeader{
			Name:   e.name,
			Method: zip.Store,
		})
		if err != nil {
			return fmt.Errorf("failed to create archive entry %q: %w", e.name, err)
		}
		if _, err := ew.Write(e.data); err != nil {
			return fmt.Errorf("failed to write archive entry %q: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// Decode rebuilds a tensor map from an archive buffer. Every
// construction-time invariant is re-checked; structural violations are
// reported as tensormap.ErrCorruptedData.
func Decode(data []byte) (*tensormap.TensorMap, error) {
	data, err := decompress(data)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, corruptedf("not a container archive: %v", err)
	}
	// Tolerate archives written with deflate by other producers; our own
	// writer always stores entries uncompressed.
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	payloads := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, corruptedf("failed to open archive entry %q: %v", f.Name, err)
		}
		payload, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, corruptedf("failed to read archive entry %q: %v", f.Name, err)
		}
		payloads[f.Name] = payload
	}

	return decodeEntries(payloads)
}

func encodeEntries(t *tensormap.TensorMap, parallelism int) ([]entry, error) {
	keys := t.Keys()
	entries := make([]entry, 1, 1+4*t.Len())
	entries[0] = entry{name: "keys.npy", data: encodeLabels(keys)}

	// Blocks are independent: encode their payloads in parallel, then
	// append in canonical block order.
	blocks := make([][]entry, t.Len())
	var g errgroup.Group
	g.SetLimit(parallelism)
	for i := range t.Len() {
		g.Go(func() error {
			block, err := t.BlockByID(i)
			if err != nil {
				return err
			}
			blocks[i] = encodeBlock(block, fmt.Sprintf("blocks/%d", i), true)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, block := range blocks {
		entries = append(entries, block...)
	}
	return entries, nil
}

// encodeBlock produces the entries of one block in canonical order: values,
// samples, components by index, properties (only for top-level blocks,
// gradients share the parent's), then gradients sorted by parameter name.
func encodeBlock(b *tensormap.Block, prefix string, withProperties bool) []entry {
	values := b.Values()
	entries := []entry{
		{name: prefix + "/values.npy", data: npy.EncodeFloat64(values.Shape(), values.Data())},
		{name: prefix + "/samples.npy", data: encodeLabels(b.Samples())},
	}
	for i, component := range b.Components() {
		entries = append(entries, entry{
			name: fmt.Sprintf("%s/components/%d.npy", prefix, i),
			data: encodeLabels(component),
		})
	}
	if withProperties {
		entries = append(entries, entry{
			name: prefix + "/properties.npy",
			data: encodeLabels(b.Properties()),
		})
	}

	parameters := b.GradientList()
	slices.Sort(parameters)
	for _, parameter := range parameters {
		gradient, _ := b.Gradient(parameter)
		entries = append(entries, encodeBlock(gradient, prefix+"/gradients/"+parameter, false)...)
	}
	return entries
}

func encodeLabels(l *tensormap.Labels) []byte {
	values := make([]int32, 0, l.Count()*l.Arity())
	for _, e := range l.All() {
		values = append(values, e...)
	}
	return npy.EncodeRecords(l.Names(), l.Count(), values)
}

func decodeEntries(payloads map[string][]byte) (*tensormap.TensorMap, error) {
	keysData, ok := payloads["keys.npy"]
	if !ok {
		return nil, corruptedf("archive misses the keys entry")
	}
	delete(payloads, "keys.npy")
	keys, err := decodeLabels(keysData)
	if err != nil {
		return nil, err
	}

	blocks := make([]*tensormap.Block, keys.Count())
	for i := range blocks {
		prefix := fmt.Sprintf("blocks/%d", i)
		properties, err := takeLabels(payloads, prefix+"/properties.npy")
		if err != nil {
			return nil, err
		}
		block, err := decodeBlock(payloads, prefix, properties)
		if err != nil {
			return nil, err
		}

		for _, parameter := range gradientParameters(payloads, prefix) {
			gradient, err := decodeBlock(payloads, prefix+"/gradients/"+parameter, properties)
			if err != nil {
				return nil, err
			}
			if err := block.AddGradient(parameter, gradient); err != nil {
				return nil, corruptedf("invalid gradient %q of block %d: %v", parameter, i, err)
			}
		}
		blocks[i] = block
	}

	if len(payloads) != 0 {
		for name := range payloads {
			return nil, corruptedf("unexpected archive entry %q", name)
		}
	}

	t, err := tensormap.New(keys, blocks)
	if err != nil {
		return nil, corruptedf("invalid tensor map: %v", err)
	}
	return t, nil
}

func decodeBlock(payloads map[string][]byte, prefix string, properties *tensormap.Labels) (*tensormap.Block, error) {
	valuesData, ok := payloads[prefix+"/values.npy"]
	if !ok {
		return nil, corruptedf("archive misses the %s values entry", prefix)
	}
	delete(payloads, prefix+"/values.npy")
	shape, cells, err := npy.DecodeFloat64(valuesData)
	if err != nil {
		return nil, corruptedf("invalid %s values: %v", prefix, err)
	}
	values, err := tensormap.NewArrayFrom(cells, shape...)
	if err != nil {
		return nil, corruptedf("invalid %s values: %v", prefix, err)
	}

	samples, err := takeLabels(payloads, prefix+"/samples.npy")
	if err != nil {
		return nil, err
	}
	if len(shape) < 2 {
		return nil, corruptedf("%s values must have at least rank 2, got %d", prefix, len(shape))
	}
	components := make([]*tensormap.Labels, len(shape)-2)
	for i := range components {
		components[i], err = takeLabels(payloads, fmt.Sprintf("%s/components/%d.npy", prefix, i))
		if err != nil {
			return nil, err
		}
	}

	block, err := tensormap.NewBlock(values, samples, components, properties)
	if err != nil {
		return nil, corruptedf("invalid block %s: %v", prefix, err)
	}
	return block, nil
}

// gradientParameters lists the gradient parameter names below one block
// prefix, sorted for deterministic reconstruction.
func gradientParameters(payloads map[string][]byte, prefix string) []string {
	marker := prefix + "/gradients/"
	var parameters []string
	for name := range payloads {
		if !strings.HasPrefix(name, marker) || !strings.HasSuffix(name, "/values.npy") {
			continue
		}
		parameter, _, _ := strings.Cut(name[len(marker):], "/")
		if !slices.Contains(parameters, parameter) {
			parameters = append(parameters, parameter)
		}
	}
	slices.Sort(parameters)
	return parameters
}

func takeLabels(payloads map[string][]byte, name string) (*tensormap.Labels, error) {
	data, ok := payloads[name]
	if !ok {
		return nil, corruptedf("archive misses the %s entry", name)
	}
	delete(payloads, name)
	return decodeLabels(data)
}

func decodeLabels(data []byte) (*tensormap.Labels, error) {
	names, values, err := npy.DecodeRecords(data)
	if err != nil {
		return nil, corruptedf("invalid labels: %v", err)
	}
	entries := make([][]int32, len(values)/len(names))
	for i := range entries {
		entries[i] = values[i*len(names) : (i+1)*len(names)]
	}
	labels, err := tensormap.NewLabels(names, entries)
	if err != nil {
		return nil, corruptedf("invalid labels: %v", err)
	}
	return labels, nil
}

func corruptedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", tensormap.ErrCorruptedData, fmt.Sprintf(format, args...))
}
