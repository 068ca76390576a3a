// Package npy encodes and decodes NumPy ".npy" payloads for the container
// codec: little-endian "<f8" arrays in C order for block values, and
// structured "<i4" records for labels.
//
// Encoding is canonical: a fixed version 1.0 header, one field order, one
// padding rule. Decoding is strict about structure (magic, dtype, shape and
// payload sizes must agree) so corrupted archives fail loudly instead of
// truncating data.
package npy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidFormat is wrapped by every decoding error of this package.
var ErrInvalidFormat = errors.New("invalid npy data")

var magic = []byte("\x93NUMPY\x01\x00")

// EncodeFloat64 encodes a C-order float64 array with the given shape.
func EncodeFloat64(shape []int, data []float64) []byte {
	descr := "'<f8'"
	buf := appendHeader(nil, descr, shape)
	for _, v := range data {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

// DecodeFloat64 decodes a float64 array, returning its shape and cells.
func DecodeFloat64(data []byte) ([]int, []float64, error) {
	h, payload, err := parseHeader(data)
	if err != nil {
		return nil, nil, err
	}
	if h.descr != "'<f8'" {
		return nil, nil, malformedf("expected float64 array, got dtype %s", h.descr)
	}
	count := 1
	for _, dim := range h.shape {
		count *= dim
	}
	if len(payload) != 8*count {
		return nil, nil, malformedf(
			"array payload has %d bytes, shape %v requires %d", len(payload), h.shape, 8*count,
		)
	}
	values := make([]float64, count)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[8*i:]))
	}
	return h.shape, values, nil
}

// EncodeRecords encodes labels as a one-dimensional structured array with
// one little-endian int32 field per variable name. values is row-major,
// count rows of len(names) each.
func EncodeRecords(names []string, count int, values []int32) []byte {
	var descr strings.Builder
	descr.WriteByte('[')
	for i, name := range names {
		if i > 0 {
			descr.WriteString(", ")
		}
		fmt.Fprintf(&descr, "('%s', '<i4')", name)
	}
	descr.WriteByte(']')

	buf := appendHeader(nil, descr.String(), []int{count})
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	return buf
}

// DecodeRecords decodes a structured labels array, returning the field names
// and the row-major int32 values.
func DecodeRecords(data []byte) ([]string, []int32, error) {
	h, payload, err := parseHeader(data)
	if err != nil {
		return nil, nil, err
	}
	names, err := parseFields(h.descr)
	if err != nil {
		return nil, nil, err
	}
	if len(h.shape) != 1 {
		return nil, nil, malformedf("labels must be one-dimensional, got shape %v", h.shape)
	}
	count := h.shape[0] * len(names)
	if len(payload) != 4*count {
		return nil, nil, malformedf(
			"labels payload has %d bytes, %d entries of %d fields require %d",
			len(payload), h.shape[0], len(names), 4*count,
		)
	}
	values := make([]int32, count)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(payload[4*i:]))
	}
	return names, values, nil
}

type header struct {
	descr string
	shape []int
}

// appendHeader writes the canonical version 1.0 header: the dict with keys
// in numpy's order, space-padded so the payload starts at a multiple of 64
// bytes, terminated by a newline.
func appendHeader(buf []byte, descr string, shape []int) []byte {
	var dict strings.Builder
	dict.WriteString("{'descr': ")
	dict.WriteString(descr)
	dict.WriteString(", 'fortran_order': False, 'shape': ")
	dict.WriteString(formatShape(shape))
	dict.WriteString(", }")

	headerLen := len(magic) + 2 + dict.Len() + 1
	padding := (64 - headerLen%64) % 64

	buf = append(buf, magic...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(dict.Len()+padding+1))
	buf = append(buf, dict.String()...)
	for range padding {
		buf = append(buf, ' ')
	}
	return append(buf, '\n')
}

func formatShape(shape []int) string {
	switch len(shape) {
	case 0:
		return "()"
	case 1:
		return fmt.Sprintf("(%d,)", shape[0])
	default:
		parts := make([]string, len(shape))
		for i, dim := range shape {
			parts[i] = strconv.Itoa(dim)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
}

func parseHeader(data []byte) (header, []byte, error) {
	if len(data) < len(magic)+2 {
		return header{}, nil, malformedf("buffer too short for npy header")
	}
	if string(data[:6]) != "\x93NUMPY" {
		return header{}, nil, malformedf("missing npy magic bytes")
	}
	major := data[6]
	var headerLen, offset int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(data[8:]))
		offset = 10
	case 2, 3:
		if len(data) < 12 {
			return header{}, nil, malformedf("buffer too short for npy header")
		}
		headerLen = int(binary.LittleEndian.Uint32(data[8:]))
		offset = 12
	default:
		return header{}, nil, malformedf("unsupported npy version %d", major)
	}
	if len(data) < offset+headerLen {
		return header{}, nil, malformedf("buffer too short for declared npy header length")
	}
	dict := strings.TrimSpace(string(data[offset : offset+headerLen]))

	h := header{}
	descr, err := dictValue(dict, "descr")
	if err != nil {
		return header{}, nil, err
	}
	h.descr = descr

	fortran, err := dictValue(dict, "fortran_order")
	if err != nil {
		return header{}, nil, err
	}
	if fortran != "False" {
		return header{}, nil, malformedf("only C-order arrays are supported")
	}

	shape, err := dictValue(dict, "shape")
	if err != nil {
		return header{}, nil, err
	}
	h.shape, err = parseShape(shape)
	if err != nil {
		return header{}, nil, err
	}
	return h, data[offset+headerLen:], nil
}

// dictValue extracts the raw value of one key from the header dict. Values
// are either quoted strings, booleans, tuples or lists of tuples.
func dictValue(dict, key string) (string, error) {
	marker := "'" + key + "':"
	start := strings.Index(dict, marker)
	if start < 0 {
		return "", malformedf("npy header misses the %q key", key)
	}
	rest := strings.TrimLeft(dict[start+len(marker):], " ")
	if rest == "" {
		return "", malformedf("npy header has an empty %q value", key)
	}
	switch rest[0] {
	case '\'':
		end := strings.IndexByte(rest[1:], '\'')
		if end < 0 {
			return "", malformedf("unterminated string in npy header")
		}
		return rest[:end+2], nil
	case '[', '(':
		closing := byte(']')
		if rest[0] == '(' {
			closing = ')'
		}
		depth := 0
		for i := range len(rest) {
			switch rest[i] {
			case rest[0]:
				depth++
			case closing:
				depth--
				if depth == 0 {
					return rest[:i+1], nil
				}
			}
		}
		return "", malformedf("unbalanced brackets in npy header")
	default:
		end := strings.IndexAny(rest, ",}")
		if end < 0 {
			end = len(rest)
		}
		return strings.TrimSpace(rest[:end]), nil
	}
}

func parseShape(value string) ([]int, error) {
	if len(value) < 2 || value[0] != '(' || value[len(value)-1] != ')' {
		return nil, malformedf("malformed shape %q in npy header", value)
	}
	inner := strings.TrimSpace(value[1 : len(value)-1])
	if inner == "" {
		return nil, nil
	}
	inner = strings.TrimSuffix(inner, ",")
	parts := strings.Split(inner, ",")
	shape := make([]int, len(parts))
	for i, part := range parts {
		dim, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || dim < 0 {
			return nil, malformedf("malformed shape %q in npy header", value)
		}
		shape[i] = dim
	}
	return shape, nil
}

// parseFields extracts the field names of a structured dtype, checking that
// every field is a little-endian int32.
func parseFields(descr string) ([]string, error) {
	if len(descr) < 2 || descr[0] != '[' || descr[len(descr)-1] != ']' {
		return nil, malformedf("labels require a structured dtype, got %s", descr)
	}
	inner := descr[1 : len(descr)-1]
	var names []string
	for inner != "" {
		inner = strings.TrimLeft(inner, ", ")
		if inner == "" {
			break
		}
		if inner[0] != '(' {
			return nil, malformedf("malformed structured dtype %s", descr)
		}
		end := strings.IndexByte(inner, ')')
		if end < 0 {
			return nil, malformedf("malformed structured dtype %s", descr)
		}
		field := inner[1:end]
		inner = inner[end+1:]

		parts := strings.SplitN(field, ",", 2)
		if len(parts) != 2 {
			return nil, malformedf("malformed structured dtype %s", descr)
		}
		name := strings.Trim(strings.TrimSpace(parts[0]), "'\"")
		kind := strings.Trim(strings.TrimSpace(parts[1]), "'\"")
		if kind != "<i4" {
			return nil, malformedf("labels field %q has dtype %s, expected <i4", name, kind)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, malformedf("structured dtype %s has no fields", descr)
	}
	return names, nil
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFormat, fmt.Sprintf(format, args...))
}
