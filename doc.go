// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kernel implements the server-side datastore kernel of a
// RAID-PIR (Private Information Retrieval) mirror: a fixed-capacity
// registry of block-table datastores, each reducible against one or
// many client bit-string queries through an aligned SIMD-style XOR
// engine, optionally accelerated by 4-Russians preprocessing.
//
// # Registry and descriptors
//
// A Registry is a fixed-capacity table of datastore entries. Callers
// obtain an opaque Descriptor from AllocateInMemory or MmapOpen and use
// it for every subsequent operation:
//
//	reg := kernel.NewRegistry(kernel.DefaultCapacity)
//	d, err := reg.AllocateInMemory(blockSize, numBlocks)
//	if err != nil {
//	    // ErrInvalidBlockSize, ErrRegistryFull, ErrOutOfMemory
//	}
//	if err := reg.SetData(d, 0, payload); err != nil {
//	    // ...
//	}
//	out, err := reg.ProduceXorFromBitstring(d, bitstring, false)
//	reg.Deallocate(d)
//
// Allocation always returns the lowest-indexed free slot; exhaustion
// reports ErrRegistryFull rather than growing the table, matching this
// kernel's fixed-capacity contract with its host.
//
// # Backends
//
// AllocateInMemory entries own zero-initialized, writable, heap storage
// and accept SetData. MmapOpen entries memory-map a pre-formatted
// database file read-only (see filemap.go for the on-disk format) and
// reject SetData with ErrReadOnlyBackend. Both expose identical read
// semantics to GetData and the reducers.
//
// # 4-Russians preprocessing
//
// DoPreprocessing partitions a datastore's blocks into groups of four
// and builds, per group, all sixteen XOR-combinations selected by a
// 4-bit nibble, turning one block-XOR per set bitstring bit into one
// block-XOR per nibble. Once built, ProduceXorFromBitstring and
// ProduceXorFromBitstrings accept use_precomputed=true. Mutating a
// datastore's storage after preprocessing silently invalidates the
// tables; the kernel does not detect this and the host must not request
// use_precomputed=true in that state.
//
// # Concurrency
//
// Reducers are pure, non-suspending, CPU-bound calls: they allocate
// their output once at entry and perform no I/O. Concurrent readers
// (GetData, the reducers) of a single descriptor need no external
// synchronisation among themselves. Mutators (SetData, DoPreprocessing,
// Deallocate) must be serialised by the host against readers of the
// same descriptor; the kernel does not provide this. Allocating or
// deallocating distinct descriptors concurrently is safe: the registry
// serialises its free-slot scan internally.
//
// # Dependencies
//
// kernel depends on:
//   - code.hybscloud.com/iox: semantic error types (ErrWouldBlock) for
//     the registry's non-blocking mode.
//   - code.hybscloud.com/spin: adaptive spin-wait backoff for the
//     registry's blocking mode.
package kernel
