// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kernel

import "github.com/raidpir/kernel/internal/align"

// inMemoryBackend owns zero-initialized, 16-byte aligned, writable
// storage allocated on the Go heap.
type inMemoryBackend struct {
	buf []byte
}

func newInMemoryBackend(numBlocks, blockSize int64) (*inMemoryBackend, error) {
	b := &inMemoryBackend{}
	// align.Alloc panics on a non-positive size; numBlocks and blockSize
	// are already validated as positive by the caller, so nbytes > 0.
	b.buf = align.Alloc(numBlocks * blockSize)
	return b, nil
}

func (b *inMemoryBackend) storage() []byte { return b.buf }

func (b *inMemoryBackend) writable() bool { return true }

func (b *inMemoryBackend) setData(offset int64, data []byte) error {
	copy(b.buf[offset:], data)
	return nil
}

func (b *inMemoryBackend) release() error {
	b.buf = nil
	return nil
}
