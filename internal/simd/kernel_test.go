// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package simd

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func putI32(data []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(data[off:], uint32(v))
}

func putF32(data []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(data[off:], math.Float32bits(v))
}

func TestScanI32FindsAllAlignedMatches(t *testing.T) {
	data := make([]byte, 1024)
	putI32(data, 0, 42)
	putI32(data, 100, 42)
	putI32(data, 500, 42)

	got := ScanI32(data, 42, 4)
	require.ElementsMatch(t, []int{0, 100, 500}, got)
}

func TestScanI32SpansLaneGroupBoundary(t *testing.T) {
	data := make([]byte, 96)
	putI32(data, 28, 7) // last lane of the first 32-byte group
	putI32(data, 64, 7) // first lane of the third group
	putI32(data, 92, 7) // last lane of the third group

	got := ScanI32(data, 7, 4)
	require.ElementsMatch(t, []int{28, 64, 92}, got)
}

func TestScanF32BitExact(t *testing.T) {
	data := make([]byte, 64)
	putF32(data, 0, 3.5)
	putF32(data, 40, 3.5)
	putF32(data, 20, -1.0)

	got := ScanF32(data, 3.5, 4)
	require.ElementsMatch(t, []int{0, 40}, got)
}

func TestScanRespectsAlignment(t *testing.T) {
	data := make([]byte, 64)
	putI32(data, 6, 9) // unaligned to 4 and to 8

	require.Empty(t, ScanI32(data, 9, 4))
	require.Empty(t, ScanI32(data, 9, 8))
}

func TestScanEmptyBuffer(t *testing.T) {
	require.Empty(t, ScanI32(nil, 1, 4))
	require.Empty(t, ScanF32(make([]byte, 3), 1, 4))
}
