// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unreal

import "strings"

// anchorPattern is a byte pattern whose match contains a RIP-relative
// operand. ripGeometry derives, from the pattern's opening bytes, where
// the little-endian displacement begins (dispOffset) and the length used
// to compute the instruction's end address (instrLen). Patterns that do
// not open with a mov/lea (the ALT2-style long prologue) resolve against
// their trailing mov instead.
type anchorPattern struct {
	text string
}

func (p anchorPattern) ripGeometry() (dispOffset, instrLen int) {
	if strings.HasPrefix(p.text, "48 8B ") || strings.HasPrefix(p.text, "48 8D ") {
		// REX.W mov/lea with a RIP-relative operand at the match start.
		return 3, 7
	}
	// Long-prologue patterns (ALT2-style) end with a 7-byte mov whose
	// operand is the last four bytes of the match.
	n := patternByteLen(p.text)
	return n - 4, n
}

// patternByteLen counts the whitespace-separated tokens in a pattern
// string, i.e. its length in bytes once parsed.
func patternByteLen(s string) int {
	n := 0
	inTok := false
	for _, r := range s {
		if r == ' ' {
			inTok = false
			continue
		}
		if !inTok {
			n++
			inTok = true
		}
	}
	return n
}

// gnamesPatterns is tried in order, UE5-specific signatures first, per
// the discovery loop's documented pattern-try-cap behavior.
var gnamesPatterns = []anchorPattern{
	{"48 8B 05 ?? ?? ?? ?? 4C 8B C3 48 8B D7"},                                                     // UE5.1: FName::AppendString
	{"48 8D 0D ?? ?? ?? ?? E8 ?? ?? ?? ?? 48 8B D8 48 85 C0 74"},                                   // UE5.2
	{"48 8B 1D ?? ?? ?? ?? 48 85 DB 75 ?? B9"},                                                     // alt
	{"48 8B 1D ?? ?? ?? ?? 48 85 DB 74"},                                                           // FName::ToString internal
	{"48 8D 0D ?? ?? ?? ?? E8 ?? ?? ?? ?? C6 05"},                                                  // lea form, UE5.1+
	{"48 8B 05 ?? ?? ?? ?? 48 85 C0 75 ?? 48 8D"},                                                  // canonical
	{"48 89 5C 24 ?? 48 89 74 24 ?? 55 57 41 56 48 8D 6C 24 ?? 48 81 EC ?? ?? ?? ?? 48 8B 05 ?? ?? ?? ??"}, // UE5 long prologue
	{"48 8B 05 ?? ?? ?? ?? 48 85 C0"},                                                              // short
}

var gobjectsPatterns = []anchorPattern{
	{"48 8B 05 ?? ?? ?? ?? 48 63 0C 88"},    // UE5
	{"48 8B 0D ?? ?? ?? ?? 48 8D 14 C1"},    // canonical
	{"48 8B 05 ?? ?? ?? ?? 48 8B 0C C8 48 8D 04 D1"}, // alt
}

var processEventPatterns = []anchorPattern{
	{"40 55 56 57 41 54 41 55 41 56 41 57 48 81 EC ?? ?? ?? ??"},
	{"48 89 5C 24 ?? 48 89 74 24 ?? 55 57 41 56 48 8D 6C 24"},
}

// maxPatternTries bounds how many matches of a single pattern are probed
// before moving to the next candidate pattern.
const maxPatternTries = 10

// heapSlack extends the valid pointer-location range past the module's own
// bounds: the pointer GNames/GObjects resolve to usually lives in process
// heap, not the module image.
const heapSlack = 256 * 1024 * 1024
