// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cpu

import "unsafe"

// Is64Bit reports whether the current platform uses 64-bit pointers.
//
// The file-mapped backend sizes its mapping as num_blocks*block_size
// plus the 16-byte header, an int64 quantity that is only guaranteed
// representable as a platform int on 64-bit architectures.
const Is64Bit = unsafe.Sizeof(uintptr(0)) == 8
