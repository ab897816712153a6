// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kernel

// Descriptor is an opaque handle to a datastore entry in a Registry.
//
// It is a small non-negative integer that indexes directly into the
// registry's slot table, but is given a named type rather than left as
// a bare int so that arithmetic on it (other than what Registry itself
// performs) is a compile error.
type Descriptor int32

// noCopy is a sentinel used to prevent copying of synchronization primitives.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
