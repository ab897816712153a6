// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fourrussians builds the 4-Russians XOR-combination lookup
// tables used to turn one block-XOR per set bitstring bit into one
// block-XOR per 4-bit nibble.
package fourrussians

import (
	"math/bits"

	"github.com/raidpir/kernel/internal/align"
	"github.com/raidpir/kernel/internal/xorsimd"
)

// BlocksPerGroup is the fixed group width. The reducers' nibble-consuming
// logic is hard-coded to this value; it must never change.
const BlocksPerGroup = 4

// GroupWidth is the number of lookup slots per group: one per subset of
// a BlocksPerGroup-block group, i.e. 2^BlocksPerGroup.
const GroupWidth = 1 << BlocksPerGroup

// NumGroups returns the number of groups numBlocks partitions into,
// rounding the possibly-short last group up.
func NumGroups(numBlocks int64) int64 {
	return (numBlocks + BlocksPerGroup - 1) / BlocksPerGroup
}

// ExtraRows returns the number of blocks in the last group when it is
// short (numBlocks not a multiple of BlocksPerGroup), or 0 if every
// group is full.
func ExtraRows(numBlocks int64) int64 {
	return numBlocks % BlocksPerGroup
}

// Build partitions storage into groups of BlocksPerGroup consecutive
// blocks and, for each group, computes all GroupWidth XOR-combinations
// selected by a 4-bit index, MSB-first (bit 3 of k selects the group's
// first block, bit 0 its last). Slot 0 of every group is left zero.
//
// storage must hold exactly numBlocks blocks of blockSize bytes each,
// 16-byte aligned, with blockSize a multiple of 64. The returned slice
// holds NumGroups(numBlocks)*GroupWidth blocks of blockSize bytes, also
// 16-byte aligned.
//
// Construction walks k = 1..GroupWidth-1 in Gray-code order: gray(k) =
// k^(k>>1) differs from gray(k-1) in exactly one bit, so slot gray(k) is
// built from slot gray(k-1) by XORing in exactly one source block — the
// one addressed by that single flipped bit. This keeps preprocessing
// linear in the number of slots rather than the number of subsets each
// slot would otherwise require summing from scratch.
//
// For the last, possibly-short group, slots whose bit pattern references
// a block beyond the group's actual width are populated with whatever
// copy-forward value Gray-code construction leaves them; the reducers
// never consult those slots (they mask off the nibble bits that address
// missing blocks before lookup), so their contents are irrelevant.
func Build(storage []byte, numBlocks, blockSize int64) []byte {
	numGroups := NumGroups(numBlocks)
	groups := align.Alloc(numGroups * GroupWidth * blockSize)

	for g := int64(0); g < numGroups; g++ {
		blocksAvailable := min(BlocksPerGroup, numBlocks-g*BlocksPerGroup)
		groupBlocks := storage[g*BlocksPerGroup*blockSize:]
		out := groups[g*GroupWidth*blockSize:]

		var lastGray uint32
		for k := uint32(1); k < GroupWidth; k++ {
			gray := k ^ (k >> 1)
			diff := gray ^ lastGray

			// diff has exactly one set bit; bit log2(diff) is the one that
			// flipped, and selects block (BlocksPerGroup-1)-log2(diff)
			// within the group.
			srcBlock := int64(BlocksPerGroup - 1 - bits.TrailingZeros32(diff))

			dst := out[gray*uint32(blockSize) : (gray+1)*uint32(blockSize)]
			prev := out[lastGray*uint32(blockSize) : (lastGray+1)*uint32(blockSize)]
			copy(dst, prev)

			if srcBlock < blocksAvailable {
				src := groupBlocks[srcBlock*blockSize : (srcBlock+1)*blockSize]
				xorsimd.XorInto(dst, src, int(blockSize))
			}

			lastGray = gray
		}
	}

	return groups
}
