// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build amd64

package simd

import "golang.org/x/sys/cpu"

var hasAVX2 = cpu.X86.HasAVX2
