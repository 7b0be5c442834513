// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package winproc

import (
	"testing"

	"golang.org/x/sys/windows"
)

func TestRegionPermissionClassification(t *testing.T) {
	cases := []struct {
		name                            string
		protect                         uint32
		readable, writable, executable bool
	}{
		{"no access", windows.PAGE_NOACCESS, false, false, false},
		{"read only", windows.PAGE_READONLY, true, false, false},
		{"read write", windows.PAGE_READWRITE, true, true, false},
		{"execute read", windows.PAGE_EXECUTE_READ, true, false, true},
		{"execute read write", windows.PAGE_EXECUTE_READWRITE, true, true, true},
		{"execute only", windows.PAGE_EXECUTE, false, false, true},
	}
	for _, c := range cases {
		if got := isReadable(c.protect); got != c.readable {
			t.Errorf("%s: isReadable = %v, want %v", c.name, got, c.readable)
		}
		if got := isWritable(c.protect); got != c.writable {
			t.Errorf("%s: isWritable = %v, want %v", c.name, got, c.writable)
		}
		if got := isExecutable(c.protect); got != c.executable {
			t.Errorf("%s: isExecutable = %v, want %v", c.name, got, c.executable)
		}
	}
}
