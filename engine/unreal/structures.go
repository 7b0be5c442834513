// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unreal

import "encoding/binary"

// UObject layout: vtable(8) + flags(4) + internalIndex(4) + class(8) +
// name FName(8) + outer(8) = 40 bytes. UField's Next pointer sits one full
// UObject beyond its node's base, per §4.8.
const (
	uobjectSize        = 40
	uobjectClassOffset  = 16
	uobjectNameOffset   = 24
	ufieldNextOffset    = uobjectSize
)

type uobject struct {
	Class             uintptr
	ComparisonIndex   uint32
	Number            uint32
}

func decodeUObject(data []byte) (uobject, bool) {
	if len(data) < uobjectSize {
		return uobject{}, false
	}
	return uobject{
		Class:           uintptr(binary.LittleEndian.Uint64(data[uobjectClassOffset:])),
		ComparisonIndex: binary.LittleEndian.Uint32(data[uobjectNameOffset:]),
		Number:          binary.LittleEndian.Uint32(data[uobjectNameOffset+4:]),
	}, true
}

// uobjectItemSize is the FUObjectItem-equivalent slot size inside a GObjects
// chunk: object pointer (8) + flags (4) + 4 bytes of padding/serial number
// this toolkit does not use, per §4.8.
const uobjectItemSize = 16

// gobjectsChunkedArrayOffset is the fixed offset into the GObjects struct
// where the chunked array fields (chunk-pointer-table, num-elements,
// num-chunks) begin, per §4.8.
const gobjectsChunkedArrayOffset = 16

const elementsPerChunk = 65536

type chunkedObjectArray struct {
	ChunksPtr   uintptr
	NumElements int32
	NumChunks   int32
}

func decodeChunkedObjectArray(data []byte) (chunkedObjectArray, bool) {
	if len(data) < gobjectsChunkedArrayOffset+16 {
		return chunkedObjectArray{}, false
	}
	base := gobjectsChunkedArrayOffset
	return chunkedObjectArray{
		ChunksPtr:   uintptr(binary.LittleEndian.Uint64(data[base:])),
		NumElements: int32(binary.LittleEndian.Uint32(data[base+8:])),
		NumChunks:   int32(binary.LittleEndian.Uint32(data[base+12:])),
	}, true
}

// uobjectItem is the decoded per-slot entry inside a GObjects chunk.
type uobjectItem struct {
	Object uintptr
	Flags  int32
}

func decodeUObjectItem(data []byte) (uobjectItem, bool) {
	if len(data) < uobjectItemSize {
		return uobjectItem{}, false
	}
	return uobjectItem{
		Object: uintptr(binary.LittleEndian.Uint64(data[0:])),
		Flags:  int32(binary.LittleEndian.Uint32(data[8:])),
	}, true
}

func (i uobjectItem) valid() bool {
	return i.Object != 0 && i.Flags&1 == 0
}

// ustructCandidateOffsets are tried in order to locate the version-dependent
// UStruct fields layout within a UObject, per §4.8.
var ustructCandidateOffsets = []int{64, 48, 56, 72}

const ustructFallbackOffset = 48

// ustruct is the decoded super-struct/children/child-properties/size/
// alignment quintuple, regardless of which candidate offset it was found
// at.
type ustruct struct {
	SuperStruct     uintptr
	Children        uintptr
	ChildProperties uintptr
	PropertiesSize  int32
	MinAlignment    int32
}

const ustructFieldsSize = 8 + 8 + 8 + 4 + 4 // 32 bytes

func decodeUStructAt(data []byte, offset int) (ustruct, bool) {
	if offset < 0 || offset+ustructFieldsSize > len(data) {
		return ustruct{}, false
	}
	b := data[offset:]
	return ustruct{
		SuperStruct:     uintptr(binary.LittleEndian.Uint64(b[0:])),
		Children:        uintptr(binary.LittleEndian.Uint64(b[8:])),
		ChildProperties: uintptr(binary.LittleEndian.Uint64(b[16:])),
		PropertiesSize:  int32(binary.LittleEndian.Uint32(b[24:])),
		MinAlignment:    int32(binary.LittleEndian.Uint32(b[28:])),
	}, true
}

// plausible reports whether a decoded UStruct looks like a real one, per
// §4.8's acceptance test for the version-probed offset.
func (s ustruct) plausible(moduleBase uintptr, moduleSize uint64) bool {
	if s.PropertiesSize < 0 || s.PropertiesSize >= 1<<20 {
		return false
	}
	if s.MinAlignment < 0 || s.MinAlignment > 16 {
		return false
	}
	if s.SuperStruct == 0 {
		return true
	}
	// "plausible heap range": anywhere above the module's own image, which
	// is where the process heap lives relative to a typical module base.
	return s.SuperStruct > moduleBase
}

// fieldHeaderSize is an FField node's fixed header: class-ptr(8), owner(8),
// next(8), name(8), flags(4), per §4.8.
const fieldHeaderSize = 8 + 8 + 8 + 8 + 4

const ffieldNextOffset = 16

type ffield struct {
	Next uintptr
	Name uint32
}

func decodeFField(data []byte) (ffield, bool) {
	if len(data) < fieldHeaderSize {
		return ffield{}, false
	}
	return ffield{
		Next: uintptr(binary.LittleEndian.Uint64(data[ffieldNextOffset:])),
		Name: binary.LittleEndian.Uint32(data[24:]),
	}, true
}

// fieldOffsetCandidates are probed, beyond the FField header, to find the
// owning class's stored field offset, per §4.8.
var fieldOffsetCandidates = []int{56, 60, 64, 68, 72, 44, 48, 52}

const maxFieldOffsetValue = 1 << 16

// maxTraversal bounds children/property linked-list walks against
// pathological cycles, per §4.8.
const maxTraversal = 1000

// maxClassHops bounds the self-referential class-pointer walk used to
// decide whether an object is itself a class, per §4.8.
const maxClassHops = 3

// UFunction extends UStruct with call metadata immediately following the
// UStruct fields: function_flags(4), num_params(1) + padding(1),
// params_size(2), per §4.9 and the original's UFunction layout.
const (
	ufunctionFlagsOffset      = 0
	ufunctionParamsSizeOffset = 6
	ufunctionExtraSize        = 8
)

// FUNC_Native and FUNC_BlueprintCallable, per the original's UFunction
// flag masks.
const (
	funcFlagNative            = 0x00000400
	funcFlagBlueprintCallable = 0x00000001
)
