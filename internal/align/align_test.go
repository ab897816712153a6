// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package align_test

import (
	"testing"

	"github.com/raidpir/kernel/internal/align"
)

func TestAlloc_Aligned(t *testing.T) {
	for _, n := range []int64{1, 15, 16, 17, 1000, 65536} {
		b := align.Alloc(n)
		if int64(len(b)) != n {
			t.Errorf("Alloc(%d) length = %d, want %d", n, len(b), n)
		}
		if !align.Aligned(b) {
			t.Errorf("Alloc(%d) returned unaligned buffer", n)
		}
	}
}

func TestAlloc_Zeroed(t *testing.T) {
	b := align.Alloc(256)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("Alloc(256)[%d] = %d, want 0", i, v)
		}
	}
}

func TestAlloc_PanicsOnNonPositive(t *testing.T) {
	for _, n := range []int64{0, -1} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("Alloc(%d) did not panic", n)
				}
			}()
			_ = align.Alloc(n)
		}()
	}
}

func TestAligned_EmptySlice(t *testing.T) {
	if !align.Aligned(nil) {
		t.Error("Aligned(nil) = false, want true")
	}
}
