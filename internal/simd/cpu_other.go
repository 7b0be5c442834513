// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !amd64

package simd

// hasAVX2 is always false off amd64; ScanI32/ScanF32 fall back to the
// scalar kernel.
var hasAVX2 = false
