// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kernel

import (
	"fmt"
	"math"
	"sync/atomic"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"

	"github.com/raidpir/kernel/internal/cpu"
	"github.com/raidpir/kernel/internal/fourrussians"
)

// DefaultCapacity is the reference registry size: "waaaay more than [a
// host] would ever need" for a single process's worth of datastores.
const DefaultCapacity = 16

// entry is one datastore registration. A slot is in use iff backend is
// non-nil; there is no partial state between "fully initialised" and
// "fully free".
type entry struct {
	numBlocks int64
	blockSize int64
	backend   backend
	groups    []byte
	kind      BackendKind
}

func (e *entry) inUse() bool { return e.backend != nil }

// entrySize is large enough to hold entry's fields on every platform
// this package's cacheline consts target (two int64, a two-word
// interface, a three-word slice and one int: 64 bytes with 8-byte
// words); pad slots out to a cache line so that
// readers of distinct descriptors (GetData, the reducers) never share a
// line with a concurrently mutated neighbour.
const entrySize = 64

type slot struct {
	entry
	_ [max(cpu.CacheLineSize-entrySize, 0)]byte
}

// spinLock is a CAS-based mutual exclusion primitive used to serialise
// the registry's free-slot scan across concurrent Allocate/Deallocate
// calls on distinct descriptors. It mirrors the contention handling in
// this module's ancestor's bounded pool: a hardware-level spin.Wait
// backoff for the common case, with an iox.ErrWouldBlock escape hatch
// when the registry is configured non-blocking.
type spinLock struct {
	_     noCopy
	state atomic.Bool
}

func (l *spinLock) Lock(nonblocking bool) error {
	if l.state.CompareAndSwap(false, true) {
		return nil
	}
	if nonblocking {
		return iox.ErrWouldBlock
	}
	var w spin.Wait
	for !l.state.CompareAndSwap(false, true) {
		w.Once()
	}
	return nil
}

func (l *spinLock) Unlock() {
	l.state.Store(false)
}

// Registry is a fixed-capacity, process-level table of datastore
// entries. Descriptors are small non-negative integers that index
// directly into it.
//
// Registry is safe for concurrent use: allocation and deallocation of
// distinct descriptors are serialised against each other by an internal
// spin lock. Reading (GetData) and reducing (ProduceXorFromBitstring*)
// a given descriptor concurrently with mutating that same descriptor
// (SetData, DoPreprocessing, Deallocate) is the host's responsibility to
// serialise; the registry does not do this itself, matching the
// single-descriptor concurrency contract this kernel is specified
// against.
type Registry struct {
	_ noCopy

	mu          spinLock
	slots       []slot
	nonblocking bool
}

// NewRegistry returns a Registry with the given fixed capacity. Panics
// if capacity is not positive.
func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		panic("kernel: registry capacity must be positive")
	}
	return &Registry{slots: make([]slot, capacity)}
}

// SetNonblock toggles whether Allocate/MmapOpen/Deallocate return
// iox.ErrWouldBlock instead of blocking when the registry's internal
// lock is contended.
func (r *Registry) SetNonblock(nonblocking bool) {
	r.nonblocking = nonblocking
}

// Cap returns the registry's fixed capacity.
func (r *Registry) Cap() int {
	return len(r.slots)
}

func validateBlockGeometry(blockSize, numBlocks int64) error {
	if blockSize <= 0 || blockSize%64 != 0 {
		return ErrInvalidBlockSize
	}
	if numBlocks <= 0 {
		return ErrInvalidBlockSize
	}
	return nil
}

// overflowsInt64 reports whether a*b cannot be represented as an int64.
func overflowsInt64(a, b int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	return a > math.MaxInt64/b
}

func (r *Registry) findFreeSlotLocked() int {
	for i := range r.slots {
		if !r.slots[i].inUse() {
			return i
		}
	}
	return -1
}

// AllocateInMemory allocates an in-memory-backed datastore entry of
// num_blocks blocks of block_size bytes each, zero-initialized, and
// returns its descriptor.
func (r *Registry) AllocateInMemory(blockSize, numBlocks int64) (Descriptor, error) {
	if err := validateBlockGeometry(blockSize, numBlocks); err != nil {
		return -1, err
	}
	if overflowsInt64(numBlocks, blockSize) {
		return -1, fmt.Errorf("%w: num_blocks*block_size overflows", ErrOutOfMemory)
	}

	if err := r.mu.Lock(r.nonblocking); err != nil {
		return -1, err
	}
	defer r.mu.Unlock()

	idx := r.findFreeSlotLocked()
	if idx < 0 {
		return -1, ErrRegistryFull
	}

	be, err := newInMemoryBackend(numBlocks, blockSize)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}

	r.slots[idx].entry = entry{numBlocks: numBlocks, blockSize: blockSize, backend: be, kind: BackendInMemory}
	return Descriptor(idx), nil
}

// MmapOpen memory-maps a pre-formatted, read-only database file and
// returns its descriptor.
func (r *Registry) MmapOpen(blockSize, numBlocks int64, path string) (Descriptor, error) {
	if err := validateBlockGeometry(blockSize, numBlocks); err != nil {
		return -1, err
	}
	if !cpu.Is64Bit {
		return -1, fmt.Errorf("%w: file-mapped backend requires a 64-bit platform", ErrMmapFailed)
	}
	if overflowsInt64(numBlocks, blockSize) {
		return -1, fmt.Errorf("%w: num_blocks*block_size overflows", ErrMmapFailed)
	}

	if err := r.mu.Lock(r.nonblocking); err != nil {
		return -1, err
	}
	defer r.mu.Unlock()

	idx := r.findFreeSlotLocked()
	if idx < 0 {
		return -1, ErrRegistryFull
	}

	be, err := newFileMappedBackend(numBlocks, blockSize, path)
	if err != nil {
		return -1, err
	}

	r.slots[idx].entry = entry{numBlocks: numBlocks, blockSize: blockSize, backend: be, kind: BackendFileMapped}
	return Descriptor(idx), nil
}

// Deallocate releases a descriptor's storage and, if built, its
// preprocessing tables, then clears the slot. Double-deallocation
// reports ErrBadDescriptor without touching registry state.
func (r *Registry) Deallocate(d Descriptor) error {
	if err := r.mu.Lock(r.nonblocking); err != nil {
		return err
	}
	defer r.mu.Unlock()

	idx := int(d)
	if idx < 0 || idx >= len(r.slots) || !r.slots[idx].inUse() {
		return ErrBadDescriptor
	}

	e := &r.slots[idx].entry
	err := e.backend.release()
	r.slots[idx].entry = entry{}
	return err
}

func (r *Registry) lookup(d Descriptor) (*entry, error) {
	idx := int(d)
	if idx < 0 || idx >= len(r.slots) || !r.slots[idx].inUse() {
		return nil, ErrBadDescriptor
	}
	return &r.slots[idx].entry, nil
}

// GetData returns a copy of storage[offset:offset+quantity] for d.
func (r *Registry) GetData(d Descriptor, offset, quantity int64) ([]byte, error) {
	e, err := r.lookup(d)
	if err != nil {
		return nil, err
	}
	if offset < 0 || quantity < 0 || offset+quantity > e.numBlocks*e.blockSize {
		return nil, ErrOutOfBounds
	}
	out := make([]byte, quantity)
	copy(out, e.backend.storage()[offset:offset+quantity])
	return out, nil
}

// SetData copies data into d's storage at offset. Only in-memory entries
// accept writes.
func (r *Registry) SetData(d Descriptor, offset int64, data []byte) error {
	e, err := r.lookup(d)
	if err != nil {
		return err
	}
	if !e.backend.writable() {
		return ErrReadOnlyBackend
	}
	quantity := int64(len(data))
	if offset < 0 || offset+quantity > e.numBlocks*e.blockSize {
		return ErrOutOfBounds
	}
	return e.backend.setData(offset, data)
}

// DoPreprocessing builds d's 4-Russians lookup tables from its current
// storage contents. Mutating storage afterward (via SetData) silently
// invalidates the tables; the kernel does not detect this, matching its
// documented contract with the host.
func (r *Registry) DoPreprocessing(d Descriptor) error {
	e, err := r.lookup(d)
	if err != nil {
		return err
	}

	numGroups := fourrussians.NumGroups(e.numBlocks)
	if overflowsInt64(numGroups*fourrussians.GroupWidth, e.blockSize) {
		return fmt.Errorf("%w: preprocessing table size overflows", ErrOutOfMemory)
	}

	e.groups = fourrussians.Build(e.backend.storage(), e.numBlocks, e.blockSize)
	return nil
}

// HasPreprocessing reports whether DoPreprocessing has succeeded for d
// since its last (re)allocation.
func (r *Registry) HasPreprocessing(d Descriptor) (bool, error) {
	e, err := r.lookup(d)
	if err != nil {
		return false, err
	}
	return e.groups != nil, nil
}

// Kind reports which backend holds d's storage.
func (r *Registry) Kind(d Descriptor) (BackendKind, error) {
	e, err := r.lookup(d)
	if err != nil {
		return 0, err
	}
	return e.kind, nil
}
