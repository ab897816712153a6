// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kernel

import (
	"github.com/raidpir/kernel/internal/align"
	"github.com/raidpir/kernel/internal/fourrussians"
	"github.com/raidpir/kernel/internal/xorsimd"
)

// bitSet reports whether bit i (MSB-first within b) is set: bit 0 is
// the most significant bit of b[0], bit 7 the least significant bit of
// b[0], bit 8 the most significant bit of b[1], and so on.
func bitSet(b []byte, i int64) bool {
	byteIdx := i / 8
	if byteIdx >= int64(len(b)) {
		return false
	}
	shift := uint(7 - i%8)
	return b[byteIdx]&(1<<shift) != 0
}

// nibbleAt returns the nibble covering group g of a bitstring, high
// nibble first within each byte: group 0 and 1 share byte 0 (group 0 is
// its high nibble), group 2 and 3 share byte 1, and so on.
func nibbleAt(b []byte, g int64) (nibble uint32, ok bool) {
	byteIdx := g / 2
	if byteIdx >= int64(len(b)) {
		return 0, false
	}
	if g%2 == 0 {
		return uint32(b[byteIdx] >> 4), true
	}
	return uint32(b[byteIdx] & 0x0f), true
}

// reduceOnePath walks a single bitstring against entry e's storage (Path
// A) or precomputed groups (Path B) and XORs the selected blocks into
// out, which must already be zeroed and exactly blockSize bytes.
func (e *entry) reduceOnePath(out, bitstring []byte, usePrecomputed bool) error {
	if usePrecomputed {
		if e.groups == nil {
			return ErrPreprocNotBuilt
		}
		return reducePrecomputed(out, bitstring, e.groups, e.numBlocks, e.blockSize)
	}
	return reduceRaw(out, bitstring, e.backend.storage(), e.numBlocks, e.blockSize)
}

func reduceRaw(out, bitstring, storage []byte, numBlocks, blockSize int64) error {
	lanes := int(blockSize / xorsimd.LaneSize)
	offset := int64(0)
	for i := int64(0); i < numBlocks; i++ {
		if bitSet(bitstring, i) {
			xorsimd.XorFullBlocks(out, storage[offset:offset+blockSize], lanes)
		}
		offset += blockSize
	}
	return nil
}

func reducePrecomputed(out, bitstring, groups []byte, numBlocks, blockSize int64) error {
	lanes := int(blockSize / xorsimd.LaneSize)
	numGroups := fourrussians.NumGroups(numBlocks)
	extra := fourrussians.ExtraRows(numBlocks)

	for g := int64(0); g < numGroups; g++ {
		n, ok := nibbleAt(bitstring, g)
		if !ok {
			continue
		}
		// The last, possibly-short group's existing blocks (group-local
		// 0..extra-1) map to the MSB-first high bits of the nibble (bit 3
		// down to bit 4-extra); the remaining low bits address blocks
		// that do not exist and must be masked off rather than gated on
		// magnitude.
		if g == numGroups-1 && extra != 0 {
			n &= (uint32(0xF) << uint(4-extra)) & 0xF
		}
		if n == 0 {
			continue
		}
		slot := groups[(g*fourrussians.GroupWidth+int64(n))*blockSize : (g*fourrussians.GroupWidth+int64(n)+1)*blockSize]
		xorsimd.XorFullBlocks(out, slot, lanes)
	}
	return nil
}

// ProduceXorFromBitstring XORs together the blocks of d selected by
// bitstring and returns the result as a single new block-sized buffer.
// Bits beyond num_blocks are silently ignored.
func (r *Registry) ProduceXorFromBitstring(d Descriptor, bitstring []byte, usePrecomputed bool) ([]byte, error) {
	e, err := r.lookup(d)
	if err != nil {
		return nil, err
	}

	out := align.Alloc(e.blockSize)
	clear(out)
	if err := e.reduceOnePath(out, bitstring, usePrecomputed); err != nil {
		return nil, err
	}
	return out, nil
}

// ProduceXorFromBitstrings applies ProduceXorFromBitstring to each of n
// equal-length slices of bitstring (laid out contiguously, not
// interleaved), but walks d's blocks/groups once, XORing into all n
// output slots per pass rather than once per slice.
func (r *Registry) ProduceXorFromBitstrings(d Descriptor, bitstring []byte, n uint32, usePrecomputed bool) ([]byte, error) {
	e, err := r.lookup(d)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrLengthMismatch
	}
	if len(bitstring)%int(n) != 0 {
		return nil, ErrLengthMismatch
	}
	sliceLen := len(bitstring) / int(n)

	out := align.Alloc(int64(n) * e.blockSize)
	clear(out)

	if usePrecomputed {
		if e.groups == nil {
			return nil, ErrPreprocNotBuilt
		}
		if err := reduceManyPrecomputed(out, bitstring, sliceLen, n, e.groups, e.numBlocks, e.blockSize); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := reduceManyRaw(out, bitstring, sliceLen, n, e.backend.storage(), e.numBlocks, e.blockSize); err != nil {
		return nil, err
	}
	return out, nil
}

func reduceManyRaw(out, bitstring []byte, sliceLen int, n uint32, storage []byte, numBlocks, blockSize int64) error {
	lanes := int(blockSize / xorsimd.LaneSize)
	offset := int64(0)
	for i := int64(0); i < numBlocks; i++ {
		block := storage[offset : offset+blockSize]
		for j := uint32(0); j < n; j++ {
			slice := bitstring[int(j)*sliceLen : (int(j)+1)*sliceLen]
			if bitSet(slice, i) {
				dst := out[int64(j)*blockSize : (int64(j)+1)*blockSize]
				xorsimd.XorFullBlocks(dst, block, lanes)
			}
		}
		offset += blockSize
	}
	return nil
}

func reduceManyPrecomputed(out, bitstring []byte, sliceLen int, n uint32, groups []byte, numBlocks, blockSize int64) error {
	lanes := int(blockSize / xorsimd.LaneSize)
	numGroups := fourrussians.NumGroups(numBlocks)
	extra := fourrussians.ExtraRows(numBlocks)

	for g := int64(0); g < numGroups; g++ {
		for j := uint32(0); j < n; j++ {
			slice := bitstring[int(j)*sliceLen : (int(j)+1)*sliceLen]
			nib, ok := nibbleAt(slice, g)
			if !ok {
				continue
			}
			if g == numGroups-1 && extra != 0 {
				nib &= (uint32(0xF) << uint(4-extra)) & 0xF
			}
			if nib == 0 {
				continue
			}
			slot := groups[(g*fourrussians.GroupWidth+int64(nib))*blockSize : (g*fourrussians.GroupWidth+int64(nib)+1)*blockSize]
			dst := out[int64(j)*blockSize : (int64(j)+1)*blockSize]
			xorsimd.XorFullBlocks(dst, slot, lanes)
		}
	}
	return nil
}

// XorBuffers returns a newly allocated, 16-byte aligned buffer holding
// a XOR b. a and b must have equal length; unlike the reducers' hot
// path, they need not share an alignment residue with one another, so
// both are first copied into aligned scratch before handing off to
// xorsimd.
func XorBuffers(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, ErrLengthMismatch
	}
	out := align.Alloc(int64(len(a)))
	copy(out, a)
	bAligned := align.Alloc(int64(len(b)))
	copy(bAligned, b)
	xorsimd.XorInto(out, bAligned, len(a))
	return out, nil
}
