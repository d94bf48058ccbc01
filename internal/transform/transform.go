// Package transform holds the per-frame byte transforms applied between the
// capture and output buffers.
package transform

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Func writes the transformed contents of src into dst and returns the
// number of bytes written. dst must be at least len(src) bytes long and must
// not overlap src. stride is the number of bytes per image row.
type Func func(dst, src []byte, stride int) int

// Default is the transform used when none is configured.
const Default = "mirror"

var (
	// ErrUnknown is returned by Lookup for names that are not registered.
	ErrUnknown = errors.New("unknown transform")

	// ErrNeedsStride reports a row-based transform selected for frames
	// without a row stride, such as compressed formats.
	ErrNeedsStride = errors.New("transform needs a row stride")
)

type entry struct {
	fn          Func
	needsStride bool
}

var registry = map[string]entry{
	"mirror":      {fn: ReverseRows, needsStride: true},
	"passthrough": {fn: Copy},
}

// Lookup returns the transform registered under name.
func Lookup(name string) (Func, error) {
	e, ok := registry[Canonical(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknown, name, strings.Join(Names(), ", "))
	}
	return e.fn, nil
}

// NeedsStride reports whether the transform registered under name works
// row by row and so cannot run with a stride of 0.
func NeedsStride(name string) bool {
	return registry[Canonical(name)].needsStride
}

// Canonical returns name in the form transforms are registered under.
func Canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names returns the registered transform names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReverseRows mirrors every row of src horizontally into dst. Rows are
// stride bytes long and are reversed byte by byte, independently of each
// other and of the pixel encoding. A trailing row shorter than stride is
// reversed over its own length.
//
// ReverseRows panics if stride is not positive.
func ReverseRows(dst, src []byte, stride int) int {
	if stride <= 0 {
		panic(fmt.Sprintf("transform: invalid stride %d", stride))
	}

	n := len(src)
	dst = dst[:n]

	for rowStart := 0; rowStart < n; rowStart += stride {
		rowLen := min(stride, n-rowStart)
		last := rowStart + rowLen - 1
		for r := 0; r < rowLen; r++ {
			dst[rowStart+r] = src[last-r]
		}
	}

	return n
}

// Copy writes src into dst unchanged.
func Copy(dst, src []byte, _ int) int {
	return copy(dst[:len(src)], src)
}
