// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package align provides 16-byte aligned memory allocation for the XOR
// engine's 128-bit lane operations.
//
// It generalizes the page- and cache-line-aligned allocation technique
// used elsewhere in this module's ancestor (over-allocate by the
// alignment width, then slice forward to the first aligned byte) down to
// the SSE2 lane width the datastore kernel requires.
package align

import "unsafe"

// LaneWidth is the alignment boundary required by the XOR engine: 16
// bytes, the width of one 128-bit lane.
const LaneWidth = 16

// Alloc returns a zero-initialized byte slice of length n whose starting
// address is aligned to LaneWidth bytes.
//
// The underlying allocation is n+LaneWidth bytes; the returned slice is a
// sub-slice of it. There is no explicit free operation: the slice keeps
// its backing array alive only as long as it (or anything derived from
// it) is reachable, and the allocation is released by the garbage
// collector once the caller drops its last reference.
//
// Panics if n is not positive.
func Alloc(n int64) []byte {
	if n <= 0 {
		panic("align: size must be positive")
	}
	raw := make([]byte, n+LaneWidth)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	offset := (LaneWidth - base%LaneWidth) % LaneWidth
	return raw[offset : offset+uintptr(n)]
}

// Aligned reports whether the given slice's starting address is a
// multiple of LaneWidth. An empty slice is trivially aligned.
func Aligned(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))%LaneWidth == 0
}
