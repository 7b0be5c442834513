// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package patternscan implements IDA-style wildcard byte pattern matching
// over memory buffers, plus x86-64 RIP-relative address resolution, used
// to locate anchor instructions (GNames, GObjects, ProcessEvent) inside a
// module's code section.
package patternscan

import (
	"strconv"
	"strings"

	"github.com/mizuamedesu/lightscan/internal/lserr"
)

// Pattern is a byte sequence with optional wildcard positions, parsed from
// a space-separated hex string such as "48 8B 05 ?? ?? ?? ?? 48 85 C0".
type Pattern struct {
	bytes []byte
	mask  []bool // true = must match, false = wildcard
}

// Parse parses a pattern string. "??" or "?" marks a wildcard byte; any
// other token must be a one- or two-hex-digit byte value.
func Parse(s string) (Pattern, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Pattern{}, lserr.New(lserr.InvalidArgument, "empty pattern")
	}
	p := Pattern{
		bytes: make([]byte, 0, len(fields)),
		mask:  make([]bool, 0, len(fields)),
	}
	for _, tok := range fields {
		if tok == "??" || tok == "?" {
			p.bytes = append(p.bytes, 0)
			p.mask = append(p.mask, false)
			continue
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return Pattern{}, lserr.Wrap(lserr.InvalidArgument, err, "invalid pattern token %q", tok)
		}
		p.bytes = append(p.bytes, byte(v))
		p.mask = append(p.mask, true)
	}
	return p, nil
}

// Len returns the pattern's length in bytes.
func (p Pattern) Len() int { return len(p.bytes) }

// MatchAt reports whether the pattern matches data starting at the given
// offset. It reports false (not a panic) if the pattern would run past the
// end of data.
func (p Pattern) MatchAt(data []byte, offset int) bool {
	if offset < 0 || offset+len(p.bytes) > len(data) {
		return false
	}
	for i, want := range p.bytes {
		if p.mask[i] && data[offset+i] != want {
			return false
		}
	}
	return true
}

// FindAll returns every offset within data where the pattern matches.
func (p Pattern) FindAll(data []byte) []int {
	if p.Len() == 0 || p.Len() > len(data) {
		return nil
	}
	var offsets []int
	for i := 0; i+p.Len() <= len(data); i++ {
		if p.MatchAt(data, i) {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

// FindFirst returns the first offset within data where the pattern
// matches.
func (p Pattern) FindFirst(data []byte) (int, bool) {
	if p.Len() == 0 || p.Len() > len(data) {
		return 0, false
	}
	for i := 0; i+p.Len() <= len(data); i++ {
		if p.MatchAt(data, i) {
			return i, true
		}
	}
	return 0, false
}

// ResolveRIPRelative computes the absolute address a RIP-relative
// instruction refers to.
//
// instrAddr is the instruction's own address; data is a buffer containing
// (at least) the instruction's bytes starting at offset 0; dispOffset is
// where the little-endian int32 displacement begins within data;
// instrLen is the instruction's total length, since RIP-relative operands
// are always relative to the address of the *next* instruction.
//
// The common encodings this toolkit anchors on (48 8B 05, 48 8B 1D,
// 48 8D 0D, ...) use dispOffset=3, instrLen=7; longer-prologue patterns
// that end in such a mov use dispOffset=n-4, instrLen=n, where n is the
// pattern's length in bytes.
func ResolveRIPRelative(instrAddr uintptr, data []byte, dispOffset, instrLen int) (uintptr, bool) {
	if dispOffset < 0 || dispOffset+4 > len(data) {
		return 0, false
	}
	disp := int32(uint32(data[dispOffset]) | uint32(data[dispOffset+1])<<8 |
		uint32(data[dispOffset+2])<<16 | uint32(data[dispOffset+3])<<24)
	return uintptr(int64(instrAddr) + int64(instrLen) + int64(disp)), true
}
