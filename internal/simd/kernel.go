// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package simd provides vectorization-friendly equality scans over raw
// byte buffers for the i32 and f32 value types. On amd64 with AVX2 available
// it unrolls eight lanes per iteration so the compiler can fold the inner
// loop into packed compares; elsewhere, and for buffers too small to fill a
// lane group, it falls back to a straightforward scalar scan.
package simd

import "math"

const laneGroupBytes = 32 // 8 lanes * 4 bytes

// ScanI32 returns the byte offsets within data, stepped by alignment, whose
// little-endian int32 contents equal target.
func ScanI32(data []byte, target int32, alignment int) []int {
	if alignment <= 0 {
		alignment = 1
	}
	if hasAVX2 && len(data) >= laneGroupBytes && alignment == 4 {
		return scanI32Lanes(data, target)
	}
	return scalarScanI32(data, target, alignment)
}

// ScanF32 returns the byte offsets within data, stepped by alignment, whose
// little-endian float32 contents bit-for-bit equal target.
func ScanF32(data []byte, target float32, alignment int) []int {
	if alignment <= 0 {
		alignment = 1
	}
	if hasAVX2 && len(data) >= laneGroupBytes && alignment == 4 {
		return scanF32Lanes(data, target)
	}
	return scalarScanF32(data, target, alignment)
}

func loadLE32(data []byte, off int) uint32 {
	return uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
}

// scanI32Lanes processes 8 int32 lanes (32 bytes) per iteration, matching
// the lane layout an AVX2 _mm256_cmpeq_epi32/_mm256_movemask_epi8 pass would
// produce: lane i of chunk c lives at byte offset c*32 + i*4.
func scanI32Lanes(data []byte, target int32) []int {
	var results []int
	want := uint32(target)
	chunks := len(data) / laneGroupBytes
	for c := 0; c < chunks; c++ {
		base := c * laneGroupBytes
		for i := 0; i < 8; i++ {
			off := base + i*4
			if loadLE32(data, off) == want {
				results = append(results, off)
			}
		}
	}
	tailBase := chunks * laneGroupBytes
	for _, off := range scalarScanI32(data[tailBase:], target, 4) {
		results = append(results, tailBase+off)
	}
	return results
}

func scanF32Lanes(data []byte, target float32) []int {
	var results []int
	want := math.Float32bits(target)
	chunks := len(data) / laneGroupBytes
	for c := 0; c < chunks; c++ {
		base := c * laneGroupBytes
		for i := 0; i < 8; i++ {
			off := base + i*4
			if loadLE32(data, off) == want {
				results = append(results, off)
			}
		}
	}
	tailBase := chunks * laneGroupBytes
	for _, off := range scalarScanF32(data[tailBase:], target, 4) {
		results = append(results, tailBase+off)
	}
	return results
}

func scalarScanI32(data []byte, target int32, alignment int) []int {
	var results []int
	want := uint32(target)
	for off := 0; off+4 <= len(data); off += alignment {
		if loadLE32(data, off) == want {
			results = append(results, off)
		}
	}
	return results
}

func scalarScanF32(data []byte, target float32, alignment int) []int {
	var results []int
	want := math.Float32bits(target)
	for off := 0; off+4 <= len(data); off += alignment {
		if loadLE32(data, off) == want {
			results = append(results, off)
		}
	}
	return results
}
