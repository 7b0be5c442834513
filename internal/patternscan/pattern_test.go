// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patternscan

import "testing"

func TestParseAndMatch(t *testing.T) {
	p, err := Parse("48 8B 05 ?? ?? ?? ?? 48 85 C0")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", p.Len())
	}

	data := []byte{0x48, 0x8B, 0x05, 0x11, 0x22, 0x33, 0x44, 0x48, 0x85, 0xC0, 0x90}
	if !p.MatchAt(data, 0) {
		t.Error("expected match at offset 0")
	}
	if p.MatchAt(data, 1) {
		t.Error("did not expect match at offset 1")
	}
}

func TestParseRejectsEmptyAndBadTokens(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Error("expected error for empty pattern")
	}
	if _, err := Parse("ZZ"); err == nil {
		t.Error("expected error for non-hex token")
	}
}

func TestFindAllAndFindFirst(t *testing.T) {
	p, err := Parse("AA ?? CC")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	data := []byte{0, 0xAA, 0x11, 0xCC, 0, 0xAA, 0x22, 0xCC, 0}

	offsets := p.FindAll(data)
	if len(offsets) != 2 || offsets[0] != 1 || offsets[1] != 5 {
		t.Errorf("FindAll = %v, want [1 5]", offsets)
	}

	off, ok := p.FindFirst(data)
	if !ok || off != 1 {
		t.Errorf("FindFirst = (%d, %v), want (1, true)", off, ok)
	}
}

func TestFindFirstNoMatch(t *testing.T) {
	p, _ := Parse("FF FF")
	if _, ok := p.FindFirst([]byte{0, 1, 2}); ok {
		t.Error("expected no match")
	}
}

func TestResolveRIPRelative(t *testing.T) {
	// mov rax, [rip+disp] at address 0x1000, disp = 0x20, instr length 7.
	// Result should be 0x1000 + 7 + 0x20 = 0x1027.
	data := []byte{0x48, 0x8B, 0x05, 0x20, 0x00, 0x00, 0x00}
	got, ok := ResolveRIPRelative(0x1000, data, 3, 7)
	if !ok {
		t.Fatal("ResolveRIPRelative reported failure")
	}
	if got != 0x1027 {
		t.Errorf("ResolveRIPRelative = %#x, want %#x", got, 0x1027)
	}
}

func TestResolveRIPRelativeNegativeDisplacement(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF} // -1
	got, ok := ResolveRIPRelative(0x2000, data, 0, 4)
	if !ok {
		t.Fatal("ResolveRIPRelative reported failure")
	}
	if got != 0x2003 {
		t.Errorf("ResolveRIPRelative = %#x, want %#x", got, 0x2003)
	}
}

func TestResolveRIPRelativeShortBuffer(t *testing.T) {
	if _, ok := ResolveRIPRelative(0x1000, []byte{1, 2}, 0, 7); ok {
		t.Error("expected failure on short buffer")
	}
}
