// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kernel

import "errors"

// Sentinel errors returned by Registry and package-level operations.
// Callers should compare with errors.Is, since several operations wrap
// these with additional context via fmt.Errorf("...: %w", ...).
var (
	// ErrInvalidBlockSize is returned when block_size is not a positive
	// multiple of 64, or num_blocks is not positive.
	ErrInvalidBlockSize = errors.New("kernel: block size must be a positive multiple of 64")

	// ErrRegistryFull is returned when Allocate/MmapOpen find no free slot.
	ErrRegistryFull = errors.New("kernel: registry has no free descriptor slots")

	// ErrOutOfMemory is returned when the requested storage or groups
	// size (num_blocks*block_size, or its preprocessing-table multiple)
	// overflows int64. A heap allocation that fails at runtime is not
	// reported through this error.
	ErrOutOfMemory = errors.New("kernel: allocation failed")

	// ErrBadDescriptor is returned when a descriptor does not refer to a
	// currently allocated entry, including on double-deallocation.
	ErrBadDescriptor = errors.New("kernel: descriptor is not in use")

	// ErrOutOfBounds is returned when an offset/quantity pair exceeds the
	// entry's storage bounds.
	ErrOutOfBounds = errors.New("kernel: offset/quantity exceeds datastore bounds")

	// ErrReadOnlyBackend is returned when SetData targets a file-mapped
	// entry.
	ErrReadOnlyBackend = errors.New("kernel: backend does not support SetData")

	// ErrOpenFailed is returned when the database file cannot be opened.
	ErrOpenFailed = errors.New("kernel: failed to open database file")

	// ErrMmapFailed is returned when the database file cannot be mapped.
	ErrMmapFailed = errors.New("kernel: failed to map database file")

	// ErrBadMagic is returned when a mapped file's header does not match
	// the expected magic literal.
	ErrBadMagic = errors.New("kernel: database file magic header mismatch")

	// ErrPreprocNotBuilt is returned when use_precomputed=true is
	// requested but DoPreprocessing has not succeeded for the descriptor.
	ErrPreprocNotBuilt = errors.New("kernel: preprocessing has not been run for this descriptor")

	// ErrLengthMismatch is returned by XorBuffers when its two operands
	// differ in length, and by the multi-bitstring reducer when the
	// bitstring length does not evenly divide by the bitstring count.
	ErrLengthMismatch = errors.New("kernel: operand lengths do not match")
)
