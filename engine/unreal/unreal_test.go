// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unreal

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/valuemodel"
	"github.com/mizuamedesu/lightscan/internal/winproc"
)

// fakeProcess is a sparse, address-indexed ProcessReader: each Read must
// land entirely within a region explicitly staged via put, so an
// unprovisioned address reads as a failure exactly like an unmapped page
// would in a real target.
type fakeProcess struct {
	mem    map[uintptr][]byte
	base   uintptr
	size   uint64
	failOK bool
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{mem: make(map[uintptr][]byte), base: 0x140000000, size: 0x1000}
}

func (f *fakeProcess) put(addr uintptr, data []byte) {
	f.mem[addr] = data
}

func (f *fakeProcess) putU64(addr uintptr, v uint64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	f.put(addr, b)
}

func (f *fakeProcess) putU32(addr uintptr, v uint32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	f.put(addr, b)
}

func (f *fakeProcess) Read(addr uintptr, size int) ([]byte, error) {
	data, ok := f.mem[addr]
	if !ok || len(data) < size {
		return nil, errUnmapped
	}
	out := make([]byte, size)
	copy(out, data[:size])
	return out, nil
}

func (f *fakeProcess) Write(addr uintptr, data []byte) error {
	f.put(addr, append([]byte(nil), data...))
	return nil
}

func (f *fakeProcess) Regions() ([]winproc.Region, error) {
	return []winproc.Region{{Base: f.base, Size: f.size, Readable: true}}, nil
}

func (f *fakeProcess) MainModule() (winproc.ModuleInfo, error) {
	return winproc.ModuleInfo{Name: "Game-Win64-Shipping.exe", Base: f.base, Size: f.size}, nil
}

func (f *fakeProcess) AllocAndWrite(size int, data []byte) (uintptr, error) {
	addr := uintptr(0x900000)
	f.put(addr, append([]byte(nil), data...))
	return addr, nil
}

func (f *fakeProcess) Free(addr uintptr) error { return nil }

func (f *fakeProcess) CreateRemoteThread(entry, arg uintptr) (uint32, error) {
	return 1, nil
}

type sentinel string

func (e sentinel) Error() string { return string(e) }

const errUnmapped = sentinel("fake: address not mapped")

func newEngine(proc *fakeProcess) *Engine {
	e := New(proc)
	e.gnames = 0x50000
	e.gobjectsPtr = 0x60000
	e.initialized = true
	return e
}

// TestGetFNameS5 is spec.md §8's S5 scenario.
func TestGetFNameS5(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)

	const blockTable = 0x50000
	const blockBase = 0x51000
	proc.putU64(blockTable, blockBase)

	const healthOffset = 1
	entryAddr := blockBase + uintptr(healthOffset)*2
	header := uint16(len("Health")<<6) // narrow, length=6
	hdr := make([]byte, 2)
	binary.LittleEndian.PutUint16(hdr, header)
	proc.put(entryAddr, hdr)
	proc.put(entryAddr+2, []byte("Health"))

	name, err := e.getFName(healthOffset)
	require.NoError(t, err)
	assert.Equal(t, "Health", name)

	_, err = e.getFName(3)
	assert.Error(t, err)
}

// TestEnumerateObjectsS6 is spec.md §8's S6 scenario.
func TestEnumerateObjectsS6(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)
	e.gobjectsPtr = 0x60000

	const chunksPtr = 0x61000
	const chunkBase = 0x62000

	outer := make([]byte, gobjectsChunkedArrayOffset+16)
	binary.LittleEndian.PutUint64(outer[gobjectsChunkedArrayOffset:], uint64(chunksPtr))
	binary.LittleEndian.PutUint32(outer[gobjectsChunkedArrayOffset+8:], 3)  // num elements
	binary.LittleEndian.PutUint32(outer[gobjectsChunkedArrayOffset+12:], 1) // num chunks
	proc.put(e.gobjectsPtr, outer)
	proc.putU64(chunksPtr, chunkBase)

	item := func(obj uintptr, flags int32) []byte {
		b := make([]byte, uobjectItemSize)
		binary.LittleEndian.PutUint64(b[0:], uint64(obj))
		binary.LittleEndian.PutUint32(b[8:], uint32(flags))
		return b
	}
	proc.put(chunkBase+0*uobjectItemSize, item(0xA, 0))
	proc.put(chunkBase+1*uobjectItemSize, item(0, 0))
	proc.put(chunkBase+2*uobjectItemSize, item(0xC, 1))

	objects := e.enumerateObjects()
	assert.Equal(t, []uintptr{0xA}, objects)
}

func putUObject(proc *fakeProcess, addr uintptr, class uintptr, comparisonIndex uint32) {
	data := make([]byte, uobjectSize)
	binary.LittleEndian.PutUint64(data[uobjectClassOffset:], uint64(class))
	binary.LittleEndian.PutUint32(data[uobjectNameOffset:], comparisonIndex)
	proc.put(addr, data)
}

// TestIsClassSelfReferential1Hop covers the UClass case: class points to
// itself directly.
func TestIsClassSelfReferential1Hop(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)

	const classAddr = 0x70000
	putUObject(proc, classAddr, classAddr, 0)

	assert.True(t, e.isClass(classAddr))
}

// TestIsClassSelfReferential2Hops covers a BlueprintGeneratedClass-style
// meta-class chain.
func TestIsClassSelfReferential2Hops(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)

	const obj = 0x71000
	const meta = 0x72000
	putUObject(proc, obj, meta, 0)
	putUObject(proc, meta, meta, 0)

	assert.True(t, e.isClass(obj))
}

// TestIsClassRejectsNonSelfReferentialChain covers invariant #6: a chain
// with no self-reference within maxClassHops reports false, not an error.
func TestIsClassRejectsNonSelfReferentialChain(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)

	const a = 0x73000
	const b = 0x74000
	const c = 0x75000
	const d = 0x76000
	putUObject(proc, a, b, 0)
	putUObject(proc, b, c, 0)
	putUObject(proc, c, d, 0)
	putUObject(proc, d, 0x77000, 0) // never loops back within the hop cap

	assert.False(t, e.isClass(a))
}

func TestInvokeRequiresInstance(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)
	e.processEvent = 0x80000

	_, err := e.Invoke(0, 1, nil)
	assert.Error(t, err)
}

func TestInvokeCreatesRemoteThread(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)
	e.processEvent = 0x80000

	v, err := e.Invoke(0x12345, 0x54321, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, int(v.I)) // null value per §4.9 step 7
}

// TestInvokeRejectsNonEmptyArgs covers spec.md §9's argument-marshaling
// design note: invoke must refuse any non-empty args rather than
// silently passing a zeroed params buffer.
func TestInvokeRejectsNonEmptyArgs(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)
	e.processEvent = 0x80000

	_, err := e.Invoke(0x12345, 0x54321, []valuemodel.Value{{I: 1}})
	assert.True(t, lserr.Is(err, lserr.Unsupported))
}

// TestGetMethodInfoDecodesFunctionFlags covers FUNC_Native/
// FUNC_BlueprintCallable decoding and params_size off a UFunction's
// call-metadata block.
func TestGetMethodInfoDecodesFunctionFlags(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)

	const methodAddr = 0x95000
	const blockBase = 0x51000
	const nameIndex = 300
	proc.putU64(e.gnames, blockBase)
	writeNarrowEntry(proc, blockBase+nameIndex*2, "ReceiveBeginPlay")

	data := make([]byte, 104) // covers widest UStruct candidate offset(72) + fields(32)
	binary.LittleEndian.PutUint32(data[uobjectNameOffset:], nameIndex)
	// UStruct fields at the first candidate offset (64) are left zeroed:
	// SuperStruct == 0 makes plausible() accept it immediately.
	const ufunctionBase = 64 + 32
	binary.LittleEndian.PutUint32(data[ufunctionBase+ufunctionFlagsOffset:], funcFlagNative|funcFlagBlueprintCallable)
	binary.LittleEndian.PutUint16(data[ufunctionBase+ufunctionParamsSizeOffset:], 16)
	proc.put(methodAddr, data)
	// readFunctionFlags re-reads the function-metadata tail as a separate
	// access once the UStruct offset is known, so it needs its own entry.
	proc.put(methodAddr+ufunctionBase, data[ufunctionBase:])

	info, err := e.getMethodInfoAt(methodAddr)
	require.NoError(t, err)
	assert.Equal(t, "ReceiveBeginPlay", info.Name)
	assert.True(t, info.IsNative())
	assert.True(t, info.IsBlueprintCallable())
	assert.Equal(t, 16, info.ParameterSizeBytes)
}

func TestFindClassByNameRequiresSelfReferentialClass(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)
	e.gobjectsPtr = 0x60000

	const chunksPtr = 0x61000
	const chunkBase = 0x62000
	const actorAddr = 0x90000
	const actorClassAddr = 0x91000

	outer := make([]byte, gobjectsChunkedArrayOffset+16)
	binary.LittleEndian.PutUint64(outer[gobjectsChunkedArrayOffset:], uint64(chunksPtr))
	binary.LittleEndian.PutUint32(outer[gobjectsChunkedArrayOffset+8:], 1)
	binary.LittleEndian.PutUint32(outer[gobjectsChunkedArrayOffset+12:], 1)
	proc.put(e.gobjectsPtr, outer)
	proc.putU64(chunksPtr, chunkBase)

	item := make([]byte, uobjectItemSize)
	binary.LittleEndian.PutUint64(item[0:], uint64(actorAddr))
	proc.put(chunkBase, item)

	putUObject(proc, actorAddr, actorClassAddr, 100)
	putUObject(proc, actorClassAddr, actorClassAddr, 200)

	const blockBase = 0x51000
	proc.putU64(e.gnames, blockBase)
	writeNarrowEntry(proc, blockBase+100*2, "Actor")
	writeNarrowEntry(proc, blockBase+200*2, "Class")

	addr, err := e.findClassByName("Actor")
	require.NoError(t, err)
	assert.Equal(t, uintptr(actorAddr), addr)

	_, err = e.findClassByName("NoSuchClass")
	assert.Error(t, err)
}

// TestFindProcessEventMatchesPattern covers invariant #4 (pattern scanner
// byte-exactness) against the shipped ProcessEvent anchor pattern.
func TestFindProcessEventMatchesPattern(t *testing.T) {
	proc := newFakeProcess()
	e := newEngine(proc)
	e.moduleBase = proc.base
	e.moduleSize = proc.size

	region := make([]byte, proc.size)
	prologue := []byte{
		0x40, 0x55, 0x56, 0x57, 0x41, 0x54, 0x41, 0x55, 0x41, 0x56, 0x41, 0x57,
		0x48, 0x81, 0xEC, 0x11, 0x22, 0x33, 0x44,
	}
	copy(region[0x200:], prologue)
	proc.put(proc.base, region)

	addr, err := e.findProcessEvent()
	require.NoError(t, err)
	assert.Equal(t, proc.base+0x200, addr)
}

func writeNarrowEntry(proc *fakeProcess, addr uintptr, s string) {
	hdr := make([]byte, 2)
	binary.LittleEndian.PutUint16(hdr, uint16(len(s)<<6))
	proc.put(addr, hdr)
	proc.put(addr+2, []byte(s))
}
