// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package winproc

import (
	"sort"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Process is an opened handle onto a remote process's address space.
type Process struct {
	pid    uint32
	name   string
	handle windows.Handle
}

// Open opens pid for memory read, write, and query access. name is
// whatever the caller already knows the process as (e.g. from
// ListProcesses); it is not re-derived from the OS.
func Open(pid uint32, name string) (*Process, error) {
	h, err := windows.OpenProcess(
		windows.PROCESS_VM_READ|windows.PROCESS_VM_WRITE|windows.PROCESS_VM_OPERATION|
			windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_CREATE_THREAD,
		false,
		pid,
	)
	if err != nil {
		return nil, errPlatform(err, "OpenProcess(pid=%d)", pid)
	}
	return &Process{pid: pid, name: name, handle: h}, nil
}

// Close releases the process handle. Close is safe to call more than
// once.
func (p *Process) Close() error {
	if p.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(p.handle)
	p.handle = 0
	if err != nil {
		return errPlatform(err, "CloseHandle")
	}
	return nil
}

// PID returns the process ID this Process was opened with.
func (p *Process) PID() uint32 { return p.pid }

// Name returns the name this Process was opened with.
func (p *Process) Name() string { return p.name }

// Handle exposes the underlying OS handle for callers (e.g. the Invocation
// component) that need to pass it to lower-level syscalls directly.
func (p *Process) Handle() windows.Handle { return p.handle }

// ListProcesses enumerates all running processes visible to the caller via
// a CreateToolhelp32Snapshot TH32CS_SNAPPROCESS snapshot.
func ListProcesses() ([]ProcessInfo, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, errPlatform(err, "CreateToolhelp32Snapshot(SNAPPROCESS)")
	}
	defer windows.CloseHandle(snap)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var procs []ProcessInfo
	err = windows.Process32First(snap, &entry)
	for err == nil {
		procs = append(procs, ProcessInfo{
			PID:  entry.ProcessID,
			Name: windows.UTF16ToString(entry.ExeFile[:]),
		})
		err = windows.Process32Next(snap, &entry)
	}
	return procs, nil
}

// Modules enumerates the main executable and loaded DLLs of the process,
// in snapshot order (the main executable is always first).
func (p *Process) Modules() ([]ModuleInfo, error) {
	snap, err := windows.CreateToolhelp32Snapshot(
		windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, p.pid)
	if err != nil {
		return nil, errPlatform(err, "CreateToolhelp32Snapshot(SNAPMODULE, pid=%d)", p.pid)
	}
	defer windows.CloseHandle(snap)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var mods []ModuleInfo
	err = windows.Module32First(snap, &entry)
	for err == nil {
		mods = append(mods, ModuleInfo{
			Name: windows.UTF16ToString(entry.Module[:]),
			Base: entry.ModBaseAddr,
			Size: uint64(entry.ModBaseSize),
		})
		err = windows.Module32Next(snap, &entry)
	}
	return mods, nil
}

// MainModule returns the process's first module (its executable image).
func (p *Process) MainModule() (ModuleInfo, error) {
	mods, err := p.Modules()
	if err != nil {
		return ModuleInfo{}, err
	}
	if len(mods) == 0 {
		return ModuleInfo{}, errMemory("pid %d has no modules", p.pid)
	}
	return mods[0], nil
}

// Regions walks the process's address space via VirtualQueryEx and returns
// the committed regions it reports, in ascending base order.
func (p *Process) Regions() ([]Region, error) {
	var regions []Region
	var addr uintptr

	for {
		var mbi windows.MemoryBasicInformation
		err := windows.VirtualQueryEx(p.handle, addr, &mbi, unsafe.Sizeof(mbi))
		if err != nil {
			break
		}
		if mbi.RegionSize == 0 {
			break
		}

		if mbi.State == windows.MEM_COMMIT {
			regions = append(regions, Region{
				Base:       mbi.BaseAddress,
				Size:       uint64(mbi.RegionSize),
				Readable:   isReadable(mbi.Protect),
				Writable:   isWritable(mbi.Protect),
				Executable: isExecutable(mbi.Protect),
			})
		}

		next := mbi.BaseAddress + uintptr(mbi.RegionSize)
		if next <= addr {
			break // overflow guard: VirtualQueryEx should always advance
		}
		addr = next
	}

	sort.Slice(regions, func(i, j int) bool { return regions[i].Base < regions[j].Base })
	return regions, nil
}

const (
	noAccessMask = windows.PAGE_NOACCESS
	readMask     = windows.PAGE_READONLY | windows.PAGE_READWRITE | windows.PAGE_WRITECOPY |
		windows.PAGE_EXECUTE_READ | windows.PAGE_EXECUTE_READWRITE | windows.PAGE_EXECUTE_WRITECOPY
	writeMask = windows.PAGE_READWRITE | windows.PAGE_WRITECOPY |
		windows.PAGE_EXECUTE_READWRITE | windows.PAGE_EXECUTE_WRITECOPY
	execMask = windows.PAGE_EXECUTE | windows.PAGE_EXECUTE_READ |
		windows.PAGE_EXECUTE_READWRITE | windows.PAGE_EXECUTE_WRITECOPY
)

func isReadable(protect uint32) bool   { return protect&noAccessMask == 0 && protect&readMask != 0 }
func isWritable(protect uint32) bool   { return protect&writeMask != 0 }
func isExecutable(protect uint32) bool { return protect&execMask != 0 }

// Read reads size bytes from the remote address addr, in chunkSize pieces.
// A failed or short read of any chunk is an error; no partial result is
// returned.
func (p *Process) Read(addr uintptr, size int) ([]byte, error) {
	buf := make([]byte, size)
	for off := 0; off < size; off += chunkSize {
		n := size - off
		if n > chunkSize {
			n = chunkSize
		}
		var done uintptr
		err := windows.ReadProcessMemory(p.handle, addr+uintptr(off), &buf[off], uintptr(n), &done)
		if err != nil {
			return nil, errPlatform(err, "ReadProcessMemory(addr=%#x, size=%d)", addr+uintptr(off), n)
		}
		if int(done) != n {
			return nil, errMemory("short read at %#x: got %d of %d bytes", addr+uintptr(off), done, n)
		}
	}
	return buf, nil
}

// Write writes data to the remote address addr, in chunkSize pieces. A
// failed or short write of any chunk is an error.
func (p *Process) Write(addr uintptr, data []byte) error {
	for off := 0; off < len(data); off += chunkSize {
		n := len(data) - off
		if n > chunkSize {
			n = chunkSize
		}
		var done uintptr
		err := windows.WriteProcessMemory(p.handle, addr+uintptr(off), &data[off], uintptr(n), &done)
		if err != nil {
			return errPlatform(err, "WriteProcessMemory(addr=%#x, size=%d)", addr+uintptr(off), n)
		}
		if int(done) != n {
			return errMemory("short write at %#x: wrote %d of %d bytes", addr+uintptr(off), done, n)
		}
	}
	return nil
}

// AllocAndWrite allocates size bytes of RWX-capable memory in the remote
// process and writes data into it (zero-padding the remainder if
// len(data) < size), returning the remote base address. Used by the
// Invocation component to stage shellcode and argument buffers.
func (p *Process) AllocAndWrite(size int, data []byte) (uintptr, error) {
	addr, err := windows.VirtualAllocEx(p.handle, 0, uintptr(size),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return 0, errPlatform(err, "VirtualAllocEx(size=%d)", size)
	}
	if len(data) > 0 {
		if err := p.Write(addr, data); err != nil {
			windows.VirtualFreeEx(p.handle, addr, 0, windows.MEM_RELEASE)
			return 0, err
		}
	}
	return addr, nil
}

// Free releases memory previously returned by AllocAndWrite.
func (p *Process) Free(addr uintptr) error {
	if err := windows.VirtualFreeEx(p.handle, addr, 0, windows.MEM_RELEASE); err != nil {
		return errPlatform(err, "VirtualFreeEx(addr=%#x)", addr)
	}
	return nil
}

// CreateRemoteThread starts a new thread in the process at entry, passing
// arg as its single parameter, and blocks until it exits, returning its
// exit code.
func (p *Process) CreateRemoteThread(entry, arg uintptr) (uint32, error) {
	h, _, err := windows.CreateRemoteThread(p.handle, nil, 0, entry, arg, 0, nil)
	if h == 0 {
		return 0, errPlatform(err, "CreateRemoteThread(entry=%#x)", entry)
	}
	defer windows.CloseHandle(h)

	if _, err := windows.WaitForSingleObject(h, windows.INFINITE); err != nil {
		return 0, errPlatform(err, "WaitForSingleObject")
	}
	var code uint32
	if err := windows.GetExitCodeThread(h, &code); err != nil {
		return 0, errPlatform(err, "GetExitCodeThread")
	}
	return code, nil
}
