// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package winproc

import "github.com/mizuamedesu/lightscan/internal/lserr"

// Process is the non-Windows stand-in for a remote process handle. Every
// method reports Unsupported: this toolkit's engines and remote-invocation
// path are inherently Windows-only, but a non-Windows build must still
// compile so the value model, SIMD kernels, and pattern scanner (which
// operate on caller-supplied byte buffers, not a live handle) stay usable
// on other platforms.
type Process struct{}

func unsupported(op string) error {
	return lserr.New(lserr.Unsupported, "%s: process memory access is only implemented for windows", op)
}

func Open(pid uint32, name string) (*Process, error) { return nil, unsupported("winproc.Open") }

func ListProcesses() ([]ProcessInfo, error) { return nil, unsupported("winproc.ListProcesses") }

func (p *Process) Close() error { return nil }

func (p *Process) PID() uint32  { return 0 }
func (p *Process) Name() string { return "" }

func (p *Process) Modules() ([]ModuleInfo, error) { return nil, unsupported("Process.Modules") }

func (p *Process) MainModule() (ModuleInfo, error) {
	return ModuleInfo{}, unsupported("Process.MainModule")
}

func (p *Process) Regions() ([]Region, error) { return nil, unsupported("Process.Regions") }

func (p *Process) Read(addr uintptr, size int) ([]byte, error) {
	return nil, unsupported("Process.Read")
}

func (p *Process) Write(addr uintptr, data []byte) error { return unsupported("Process.Write") }

func (p *Process) AllocAndWrite(size int, data []byte) (uintptr, error) {
	return 0, unsupported("Process.AllocAndWrite")
}

func (p *Process) Free(addr uintptr) error { return unsupported("Process.Free") }

func (p *Process) CreateRemoteThread(entry, arg uintptr) (uint32, error) {
	return 0, unsupported("Process.CreateRemoteThread")
}
