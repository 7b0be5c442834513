// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package native is the limited Engine variant for targets with no
// recognized scripting/reflection runtime: it exposes only what a PE
// export table can offer — a flat name-to-address symbol table for the
// main module, treated as a set of static "methods" with no owning
// class. Class, field, and instance operations are all
// unsupported-operation.
//
// debug/pe parses the COFF file header and 64-bit optional header (the
// part of a PE image whose layout is identical on disk and once mapped
// into memory), but it has no export-directory API, so the
// IMAGE_EXPORT_DIRECTORY walk below is hand-decoded directly against the
// memory-resident image: RVAs in a mapped module equal byte offsets into
// the buffer this backend reads from the process, so no
// raw-offset-to-RVA section translation (which the on-disk layout would
// need) is required.
package native

import (
	"bytes"
	"encoding/binary"

	"github.com/mizuamedesu/lightscan/engine"
	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/valuemodel"

	"debug/pe"
)

// ProcessReader is the subset of winproc.Process the native backend
// needs: a bulk read of the module image as it sits in the target's
// address space.
type ProcessReader interface {
	Read(addr uintptr, size int) ([]byte, error)
}

// Engine is the PE-export-table backend.
type Engine struct {
	proc        ProcessReader
	moduleBase  uintptr
	moduleSize  uint64
	symbols     map[string]uintptr
	initialized bool
}

// New returns an uninitialized native backend over the given module.
func New(proc ProcessReader, moduleBase uintptr, moduleSize uint64) *Engine {
	return &Engine{proc: proc, moduleBase: moduleBase, moduleSize: moduleSize}
}

func (e *Engine) Backend() engine.Backend { return engine.Native }

func (e *Engine) Version() (string, bool) { return "", false }

func (e *Engine) IsInitialized() bool { return e.initialized }

// Initialize reads the module image and walks its export directory.
func (e *Engine) Initialize() error {
	if e.initialized {
		return nil
	}
	img, err := e.proc.Read(e.moduleBase, int(e.moduleSize))
	if err != nil {
		return lserr.Wrap(lserr.InitializationFailed, err, "native: reading module image")
	}

	symbols, err := parseExportTable(img, e.moduleBase)
	if err != nil {
		return lserr.Wrap(lserr.InitializationFailed, err, "native: parsing export table")
	}

	e.symbols = symbols
	e.initialized = true
	return nil
}

// imageExportDirectory is IMAGE_EXPORT_DIRECTORY, which debug/pe does not
// define.
type imageExportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32 // RVA to an array of function RVAs
	AddressOfNames        uint32 // RVA to an array of name-string RVAs
	AddressOfNameOrdinals uint32 // RVA to an array of uint16 ordinals
}

func parseExportTable(img []byte, base uintptr) (map[string]uintptr, error) {
	if len(img) < 0x40 || img[0] != 'M' || img[1] != 'Z' {
		return nil, lserr.New(lserr.InvalidArgument, "not a PE image (missing MZ signature)")
	}
	peOffset := binary.LittleEndian.Uint32(img[0x3C:])
	if int(peOffset)+24 > len(img) {
		return nil, lserr.New(lserr.InvalidArgument, "PE header offset out of range")
	}
	if !bytes.Equal(img[peOffset:peOffset+4], []byte("PE\x00\x00")) {
		return nil, lserr.New(lserr.InvalidArgument, "missing PE signature")
	}

	var fh pe.FileHeader
	fhOff := peOffset + 4
	if err := binary.Read(bytes.NewReader(img[fhOff:]), binary.LittleEndian, &fh); err != nil {
		return nil, lserr.Wrap(lserr.InvalidArgument, err, "decoding COFF file header")
	}
	if fh.Machine != pe.IMAGE_FILE_MACHINE_AMD64 {
		return nil, lserr.New(lserr.Unsupported, "native engine only supports x86-64 images")
	}

	ohOff := fhOff + 20
	var oh pe.OptionalHeader64
	if err := binary.Read(bytes.NewReader(img[ohOff:]), binary.LittleEndian, &oh); err != nil {
		return nil, lserr.Wrap(lserr.InvalidArgument, err, "decoding optional header")
	}

	exportDir := oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
	symbols := make(map[string]uintptr)
	if exportDir.VirtualAddress == 0 || exportDir.Size == 0 {
		return symbols, nil // module exports nothing; not an error
	}

	var ed imageExportDirectory
	if int(exportDir.VirtualAddress)+40 > len(img) {
		return nil, lserr.New(lserr.InvalidArgument, "export directory out of range")
	}
	if err := binary.Read(bytes.NewReader(img[exportDir.VirtualAddress:]), binary.LittleEndian, &ed); err != nil {
		return nil, lserr.Wrap(lserr.InvalidArgument, err, "decoding export directory")
	}

	for i := uint32(0); i < ed.NumberOfNames; i++ {
		nameRVAOff := ed.AddressOfNames + i*4
		if int(nameRVAOff)+4 > len(img) {
			continue
		}
		nameRVA := binary.LittleEndian.Uint32(img[nameRVAOff:])
		name := readCString(img, nameRVA)
		if name == "" {
			continue
		}

		ordOff := ed.AddressOfNameOrdinals + i*2
		if int(ordOff)+2 > len(img) {
			continue
		}
		ordinal := binary.LittleEndian.Uint16(img[ordOff:])

		funcRVAOff := ed.AddressOfFunctions + uint32(ordinal)*4
		if int(funcRVAOff)+4 > len(img) {
			continue
		}
		funcRVA := binary.LittleEndian.Uint32(img[funcRVAOff:])
		if funcRVA == 0 {
			continue
		}
		symbols[name] = base + uintptr(funcRVA)
	}
	return symbols, nil
}

func readCString(buf []byte, rva uint32) string {
	if int(rva) >= len(buf) {
		return ""
	}
	end := int(rva)
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	return string(buf[rva:end])
}

func unsupported(op string) error {
	return lserr.New(lserr.Unsupported, "native: %s is not supported", op)
}

func (e *Engine) requireInitialized() error {
	if !e.initialized {
		return lserr.New(lserr.NotInitialized, "native: engine not initialized")
	}
	return nil
}

func (e *Engine) FindClass(name string) (engine.ClassInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return engine.ClassInfo{}, err
	}
	return engine.ClassInfo{}, unsupported("FindClass")
}

func (e *Engine) GetClassInfo(h engine.Handle) (engine.ClassInfo, error) {
	return engine.ClassInfo{}, unsupported("GetClassInfo")
}

func (e *Engine) EnumerateClasses() ([]engine.ClassInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	return nil, unsupported("EnumerateClasses")
}

func (e *Engine) FindMethod(class engine.Handle, name string) (engine.MethodInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return engine.MethodInfo{}, err
	}
	addr, ok := e.symbols[name]
	if !ok {
		return engine.MethodInfo{}, lserr.New(lserr.MethodNotFound, "native: no export named %q", name)
	}
	return engine.MethodInfo{Handle: engine.Handle(addr), Name: name, Native: true}, nil
}

func (e *Engine) GetMethodInfo(h engine.Handle) (engine.MethodInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return engine.MethodInfo{}, err
	}
	for name, addr := range e.symbols {
		if uintptr(h) == addr {
			return engine.MethodInfo{Handle: h, Name: name, Native: true}, nil
		}
	}
	return engine.MethodInfo{}, lserr.New(lserr.MethodNotFound, "native: no export at handle %#x", uint64(h))
}

func (e *Engine) EnumerateMethods(class engine.Handle) ([]engine.MethodInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	methods := make([]engine.MethodInfo, 0, len(e.symbols))
	for name, addr := range e.symbols {
		methods = append(methods, engine.MethodInfo{Handle: engine.Handle(addr), Name: name, Native: true})
	}
	return methods, nil
}

func (e *Engine) FindField(class engine.Handle, name string) (engine.FieldInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return engine.FieldInfo{}, err
	}
	return engine.FieldInfo{}, unsupported("FindField")
}

func (e *Engine) GetFieldInfo(h engine.Handle) (engine.FieldInfo, error) {
	return engine.FieldInfo{}, unsupported("GetFieldInfo")
}

func (e *Engine) EnumerateFields(class engine.Handle) ([]engine.FieldInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	return nil, unsupported("EnumerateFields")
}

func (e *Engine) GetInstances(class engine.Handle) ([]engine.Handle, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	return nil, unsupported("GetInstances")
}

func (e *Engine) GetInstanceClass(instance engine.Handle) (engine.Handle, error) {
	return 0, unsupported("GetInstanceClass")
}

func (e *Engine) Invoke(instance, method engine.Handle, args []valuemodel.Value) (valuemodel.Value, error) {
	return valuemodel.Value{}, unsupported("Invoke")
}

func (e *Engine) ReadField(instance, field engine.Handle) (valuemodel.Value, error) {
	return valuemodel.Value{}, unsupported("ReadField")
}

func (e *Engine) WriteField(instance, field engine.Handle, value valuemodel.Value) error {
	return unsupported("WriteField")
}
