// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package xorsimd implements aligned, lane-wise XOR over byte slices.
//
// A lane is 16 bytes, the width of an SSE2 __m128i register. Lanes are
// XORed as a pair of uint64 words through an unsafe pointer cast rather
// than through assembly, the same pointer-arithmetic-over-byte-slices
// idiom this module's ancestor uses for its SliceOfXxxArray buffer
// views. On every architecture Go supports this compiles to two 64-bit
// XOR instructions operating on adjacent, cache-resident words, which is
// the scalar equivalent of the reference implementation's PXOR.
package xorsimd

import "unsafe"

// LaneSize is the width, in bytes, of one XOR lane.
const LaneSize = 16

// XorInto sets dest[i] ^= src[i] for i in [0, n).
//
// dest and src must each have length >= n. For n > LaneSize, dest and
// src must share the same alignment residue modulo LaneSize (that is,
// (addr(dest)-addr(src)) % LaneSize == 0); callers are required to
// guarantee this — it panics otherwise, since a residue mismatch is a
// programmer error in this package's callers (fourrussians.Build and
// kernel.XorBuffers both pass LaneSize-aligned buffers).
func XorInto(dest, src []byte, n int) {
	if n <= LaneSize {
		xorBytes(dest[:n], src[:n])
		return
	}

	db := uintptr(unsafe.Pointer(unsafe.SliceData(dest)))
	sb := uintptr(unsafe.Pointer(unsafe.SliceData(src)))
	if db%LaneSize != sb%LaneSize {
		panic("xorsimd: dest and src have different alignment residues")
	}

	head := int((LaneSize - sb%LaneSize) % LaneSize)
	xorBytes(dest[:head], src[:head])

	middleLanes := (n - head) / LaneSize
	XorFullBlocks(dest[head:], src[head:], middleLanes)

	tailStart := head + middleLanes*LaneSize
	xorBytes(dest[tailStart:n], src[tailStart:n])
}

// XorFullBlocks XORs count LaneSize-byte lanes from src into dest.
//
// Both dest and src must be 16-byte aligned and at least count*LaneSize
// bytes long; this is the hot path invoked once per set bitstring bit
// (or once per nonzero 4-Russians nibble) by the reducers.
func XorFullBlocks(dest, src []byte, count int) {
	for i := range count {
		d := (*[2]uint64)(unsafe.Pointer(&dest[i*LaneSize]))
		s := (*[2]uint64)(unsafe.Pointer(&src[i*LaneSize]))
		d[0] ^= s[0]
		d[1] ^= s[1]
	}
}

func xorBytes(dest, src []byte) {
	for i := range dest {
		dest[i] ^= src[i]
	}
}
