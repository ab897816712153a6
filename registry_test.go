// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kernel_test

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/raidpir/kernel"
)

func TestRegistry_AllocateInMemory_InvalidBlockSize(t *testing.T) {
	reg := kernel.NewRegistry(4)

	cases := []struct {
		blockSize, numBlocks int64
	}{
		{0, 8},
		{63, 8},
		{100, 8},
		{64, 0},
		{64, -1},
	}
	for _, c := range cases {
		_, err := reg.AllocateInMemory(c.blockSize, c.numBlocks)
		if !errors.Is(err, kernel.ErrInvalidBlockSize) {
			t.Errorf("AllocateInMemory(%d, %d) err = %v, want ErrInvalidBlockSize", c.blockSize, c.numBlocks, err)
		}
	}
}

func TestRegistry_AllocateInMemory_RegistryFull(t *testing.T) {
	reg := kernel.NewRegistry(2)

	if _, err := reg.AllocateInMemory(64, 4); err != nil {
		t.Fatalf("first AllocateInMemory failed: %v", err)
	}
	if _, err := reg.AllocateInMemory(64, 4); err != nil {
		t.Fatalf("second AllocateInMemory failed: %v", err)
	}
	if _, err := reg.AllocateInMemory(64, 4); !errors.Is(err, kernel.ErrRegistryFull) {
		t.Errorf("third AllocateInMemory err = %v, want ErrRegistryFull", err)
	}
}

func TestRegistry_AllocateInMemory_LowestFreeSlot(t *testing.T) {
	reg := kernel.NewRegistry(4)

	d0, _ := reg.AllocateInMemory(64, 1)
	d1, _ := reg.AllocateInMemory(64, 1)
	_ = d1
	if err := reg.Deallocate(d0); err != nil {
		t.Fatalf("Deallocate(d0) failed: %v", err)
	}

	d2, err := reg.AllocateInMemory(64, 1)
	if err != nil {
		t.Fatalf("AllocateInMemory after free failed: %v", err)
	}
	if d2 != d0 {
		t.Errorf("AllocateInMemory reused slot %v, want the freed lowest slot %v", d2, d0)
	}
}

func TestRegistry_Deallocate_DoubleFree(t *testing.T) {
	reg := kernel.NewRegistry(2)
	d, _ := reg.AllocateInMemory(64, 1)

	if err := reg.Deallocate(d); err != nil {
		t.Fatalf("first Deallocate failed: %v", err)
	}
	if err := reg.Deallocate(d); !errors.Is(err, kernel.ErrBadDescriptor) {
		t.Errorf("second Deallocate err = %v, want ErrBadDescriptor", err)
	}
}

func TestRegistry_Deallocate_BadDescriptor(t *testing.T) {
	reg := kernel.NewRegistry(2)
	if err := reg.Deallocate(99); !errors.Is(err, kernel.ErrBadDescriptor) {
		t.Errorf("Deallocate(99) err = %v, want ErrBadDescriptor", err)
	}
}

// TestRegistry_RoundTrip covers invariant 2 and boundary S5.
func TestRegistry_RoundTrip(t *testing.T) {
	reg := kernel.NewRegistry(4)
	const blockSize, numBlocks = 64, 8
	d, err := reg.AllocateInMemory(blockSize, numBlocks)
	if err != nil {
		t.Fatalf("AllocateInMemory failed: %v", err)
	}

	payload := make([]byte, blockSize*numBlocks)
	rand.New(rand.NewSource(1)).Read(payload)

	if err := reg.SetData(d, 0, payload); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}

	got, err := reg.GetData(d, 0, blockSize*numBlocks)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("GetData returned %v, want %v", got, payload)
	}
}

func TestRegistry_GetData_OutOfBounds(t *testing.T) {
	reg := kernel.NewRegistry(2)
	d, _ := reg.AllocateInMemory(64, 4)

	if _, err := reg.GetData(d, 0, 64*4+1); !errors.Is(err, kernel.ErrOutOfBounds) {
		t.Errorf("GetData past end err = %v, want ErrOutOfBounds", err)
	}
}

func TestRegistry_SetData_InMemoryAcceptsWrites(t *testing.T) {
	// Rejection by the read-only backend is covered by
	// TestRegistry_SetData_RejectedOnFileMapped in filemap_test.go; here we
	// only check the in-memory backend accepts writes at all.
	reg := kernel.NewRegistry(2)
	d, _ := reg.AllocateInMemory(64, 1)
	if err := reg.SetData(d, 0, make([]byte, 64)); err != nil {
		t.Errorf("SetData on in-memory backend failed: %v", err)
	}
}

func TestRegistry_Nonblock_Uncontended(t *testing.T) {
	reg := kernel.NewRegistry(4)
	reg.SetNonblock(true)

	// The spin lock is only held during the brief critical section of
	// each call and cannot be held from outside the package, so this
	// checks only the uncontended case: a nonblocking registry must
	// still succeed when nothing else holds the lock.
	d, err := reg.AllocateInMemory(64, 1)
	if err != nil {
		t.Fatalf("AllocateInMemory on uncontended nonblocking registry failed: %v", err)
	}
	if err := reg.Deallocate(d); err != nil {
		t.Fatalf("Deallocate on uncontended nonblocking registry failed: %v", err)
	}
}

func TestRegistry_Cap(t *testing.T) {
	reg := kernel.NewRegistry(kernel.DefaultCapacity)
	if reg.Cap() != kernel.DefaultCapacity {
		t.Errorf("Cap() = %d, want %d", reg.Cap(), kernel.DefaultCapacity)
	}
}

func TestRegistry_KindAndHasPreprocessing(t *testing.T) {
	reg := kernel.NewRegistry(2)
	d, err := reg.AllocateInMemory(64, 4)
	if err != nil {
		t.Fatalf("AllocateInMemory failed: %v", err)
	}

	kind, err := reg.Kind(d)
	if err != nil {
		t.Fatalf("Kind failed: %v", err)
	}
	if kind != kernel.BackendInMemory {
		t.Errorf("Kind() = %v, want %v", kind, kernel.BackendInMemory)
	}

	built, err := reg.HasPreprocessing(d)
	if err != nil {
		t.Fatalf("HasPreprocessing failed: %v", err)
	}
	if built {
		t.Error("HasPreprocessing() = true before DoPreprocessing, want false")
	}

	if err := reg.DoPreprocessing(d); err != nil {
		t.Fatalf("DoPreprocessing failed: %v", err)
	}
	built, err = reg.HasPreprocessing(d)
	if err != nil {
		t.Fatalf("HasPreprocessing failed: %v", err)
	}
	if !built {
		t.Error("HasPreprocessing() = false after DoPreprocessing, want true")
	}
}

func TestNewRegistry_PanicsOnNonPositiveCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("NewRegistry(%d) did not panic", c)
				}
			}()
			_ = kernel.NewRegistry(c)
		}()
	}
}
