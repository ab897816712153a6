// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package kernel

import (
	"bytes"
	"fmt"
	"os"
	"syscall"
)

// magicLen is the length, in bytes, of the database file header.
const magicLen = 16

// magic is the expected literal contents of a database file's header.
var magic = []byte("RAIDPIRDB_v0.9.5")

// fileMappedBackend holds a read-only memory mapping of a pre-formatted
// database file. mapped is the full mmap (header included); data is the
// slice past the header, which is what storage() exposes.
//
// Grounded on the mmap-open sequence used by the pack's fixed-record
// slotcache implementation: open the file read-only, fstat to validate
// its size, mmap with PROT_READ|MAP_SHARED, close the fd (the mapping
// keeps the file alive independently of the descriptor).
type fileMappedBackend struct {
	mapped []byte
	data   []byte
}

func newFileMappedBackend(numBlocks, blockSize int64, path string) (*fileMappedBackend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	wantSize := numBlocks*blockSize + magicLen
	if stat.Size() < wantSize {
		return nil, fmt.Errorf("%w: file is %d bytes, want at least %d", ErrOpenFailed, stat.Size(), wantSize)
	}

	mapped, err := syscall.Mmap(int(f.Fd()), 0, int(wantSize), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMmapFailed, err)
	}

	if !bytes.Equal(mapped[:magicLen], magic) {
		_ = syscall.Munmap(mapped)
		return nil, ErrBadMagic
	}

	// Advance past the header by exactly magicLen bytes. Page size is
	// always a multiple of 16, so this slice start remains 16-byte
	// aligned regardless of the host's page size.
	return &fileMappedBackend{mapped: mapped, data: mapped[magicLen:]}, nil
}

func (b *fileMappedBackend) storage() []byte { return b.data }

func (b *fileMappedBackend) writable() bool { return false }

func (b *fileMappedBackend) setData(offset int64, data []byte) error {
	return ErrReadOnlyBackend
}

func (b *fileMappedBackend) release() error {
	return syscall.Munmap(b.mapped)
}
