// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package native

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debug/pe"
)

// fakeModule is a minimal in-memory ProcessReader handing back a single
// pre-built module image, standing in for a live remote read.
type fakeModule struct {
	base uintptr
	img  []byte
}

func (f *fakeModule) Read(addr uintptr, size int) ([]byte, error) {
	if addr != f.base || size != len(f.img) {
		return nil, errBadRead
	}
	out := make([]byte, size)
	copy(out, f.img)
	return out, nil
}

type fakeReadErr string

func (e fakeReadErr) Error() string { return string(e) }

const errBadRead = fakeReadErr("fake: unexpected read")

// buildSyntheticPE assembles a minimal, in-memory-layout PE64 image
// exporting the given name->RVA symbol table. Section data and relocations
// are irrelevant to the export-directory walk, so the image is just the
// headers followed by the export directory and its three parallel arrays
// laid out back to back.
func buildSyntheticPE(t *testing.T, exports map[string]uint32) []byte {
	t.Helper()

	const (
		dosHeaderSize = 0x40
		coffHeaderLen = 20
	)
	peOffset := uint32(dosHeaderSize)
	fhOff := peOffset + 4
	ohOff := fhOff + coffHeaderLen
	ohSize := uint32(binary.Size(pe.OptionalHeader64{}))
	exportDirOff := ohOff + ohSize

	names := make([]string, 0, len(exports))
	for n := range exports {
		names = append(names, n)
	}

	// Lay out: export directory (40 bytes) | functions[] | names[] |
	// ordinals[] | name strings.
	numFuncs := uint32(len(names))
	funcArrayOff := exportDirOff + 40
	nameArrayOff := funcArrayOff + numFuncs*4
	ordArrayOff := nameArrayOff + numFuncs*4
	stringsOff := ordArrayOff + numFuncs*2

	buf := make([]byte, stringsOff)
	for i, n := range names {
		buf = append(buf, []byte(n)...)
		buf = append(buf, 0)
		_ = i
	}

	buf[0], buf[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(buf[0x3C:], peOffset)
	copy(buf[peOffset:], []byte("PE\x00\x00"))

	var fh pe.FileHeader
	fh.Machine = pe.IMAGE_FILE_MACHINE_AMD64
	fh.SizeOfOptionalHeader = uint16(ohSize)
	putFileHeader(buf[fhOff:], fh)

	var oh pe.OptionalHeader64
	oh.Magic = 0x20b
	oh.NumberOfRvaAndSizes = 16
	oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT] = pe.DataDirectory{
		VirtualAddress: exportDirOff,
		Size:           stringsOff - exportDirOff,
	}
	putOptionalHeader64(buf[ohOff:], oh)

	binary.LittleEndian.PutUint32(buf[exportDirOff+20:], numFuncs) // NumberOfFunctions
	binary.LittleEndian.PutUint32(buf[exportDirOff+24:], numFuncs) // NumberOfNames
	binary.LittleEndian.PutUint32(buf[exportDirOff+28:], funcArrayOff)
	binary.LittleEndian.PutUint32(buf[exportDirOff+32:], nameArrayOff)
	binary.LittleEndian.PutUint32(buf[exportDirOff+36:], ordArrayOff)

	strPos := stringsOff
	for i, n := range names {
		binary.LittleEndian.PutUint32(buf[funcArrayOff+uint32(i)*4:], exports[n])
		binary.LittleEndian.PutUint32(buf[nameArrayOff+uint32(i)*4:], strPos)
		binary.LittleEndian.PutUint16(buf[ordArrayOff+uint32(i)*2:], uint16(i))
		strPos += uint32(len(n)) + 1
	}

	return buf
}

func putFileHeader(b []byte, fh pe.FileHeader) {
	binary.LittleEndian.PutUint16(b[0:], fh.Machine)
	binary.LittleEndian.PutUint16(b[2:], fh.NumberOfSections)
	binary.LittleEndian.PutUint32(b[4:], fh.TimeDateStamp)
	binary.LittleEndian.PutUint32(b[8:], fh.PointerToSymbolTable)
	binary.LittleEndian.PutUint32(b[12:], fh.NumberOfSymbols)
	binary.LittleEndian.PutUint16(b[16:], fh.SizeOfOptionalHeader)
	binary.LittleEndian.PutUint16(b[18:], fh.Characteristics)
}

// putOptionalHeader64 writes the fields binary.Read actually consumes when
// decoding pe.OptionalHeader64 via reflection: each field tightly packed in
// declaration order, with no Go struct padding. Only Magic,
// NumberOfRvaAndSizes, and DataDirectory matter to the export walk; the
// rest is left zero.
func putOptionalHeader64(b []byte, oh pe.OptionalHeader64) {
	binary.LittleEndian.PutUint16(b[0:], oh.Magic)
	const (
		numberOfRvaAndSizesOff = 108
		dataDirectoryOff       = 112
	)
	binary.LittleEndian.PutUint32(b[numberOfRvaAndSizesOff:], oh.NumberOfRvaAndSizes)
	for i, dd := range oh.DataDirectory {
		binary.LittleEndian.PutUint32(b[dataDirectoryOff+i*8:], dd.VirtualAddress)
		binary.LittleEndian.PutUint32(b[dataDirectoryOff+i*8+4:], dd.Size)
	}
}

func TestParseExportTableFindsAllSymbols(t *testing.T) {
	exports := map[string]uint32{
		"Foo":        0x1000,
		"Bar":        0x2000,
		"FooBarBaz":  0x3000,
		"InitModule": 0x4000,
	}
	img := buildSyntheticPE(t, exports)

	symbols, err := parseExportTable(img, 0x140000000)
	require.NoError(t, err)
	require.Len(t, symbols, len(exports))
	for name, rva := range exports {
		assert.Equal(t, uintptr(0x140000000)+uintptr(rva), symbols[name], "symbol %s", name)
	}
}

func TestParseExportTableNoExports(t *testing.T) {
	img := buildSyntheticPE(t, nil)
	symbols, err := parseExportTable(img, 0x140000000)
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestParseExportTableRejectsBadSignature(t *testing.T) {
	img := make([]byte, 0x80)
	_, err := parseExportTable(img, 0x1000)
	assert.Error(t, err)
}

func TestParseExportTableRejectsNon64BitMachine(t *testing.T) {
	img := buildSyntheticPE(t, map[string]uint32{"X": 0x10})
	binary.LittleEndian.PutUint16(img[0x44:], 0x14c) // IMAGE_FILE_MACHINE_I386
	_, err := parseExportTable(img, 0x1000)
	assert.Error(t, err)
}

func TestEngineFindMethodAndEnumerate(t *testing.T) {
	exports := map[string]uint32{"Update": 0x500, "Render": 0x600}
	img := buildSyntheticPE(t, exports)
	proc := &fakeModule{base: 0x7ff600000000, img: img}

	e := New(proc, proc.base, uint64(len(img)))
	require.NoError(t, e.Initialize())
	assert.True(t, e.IsInitialized())

	m, err := e.FindMethod(0, "Update")
	require.NoError(t, err)
	assert.Equal(t, proc.base+0x500, uintptr(m.Handle))
	assert.True(t, m.IsNative())

	_, err = e.FindMethod(0, "DoesNotExist")
	assert.Error(t, err)

	methods, err := e.EnumerateMethods(0)
	require.NoError(t, err)
	assert.Len(t, methods, 2)
}

func TestEngineUnsupportedCapabilities(t *testing.T) {
	img := buildSyntheticPE(t, nil)
	proc := &fakeModule{base: 0x400000, img: img}
	e := New(proc, proc.base, uint64(len(img)))
	require.NoError(t, e.Initialize())

	_, err := e.FindClass("AnyClass")
	assert.Error(t, err)
	_, err = e.GetInstanceClass(0)
	assert.Error(t, err)
	_, err = e.Invoke(0, 0, nil)
	assert.Error(t, err)
}

func TestEngineRequiresInitialize(t *testing.T) {
	e := New(&fakeModule{}, 0, 0)
	_, err := e.FindMethod(0, "Anything")
	assert.Error(t, err)
}
