// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unreal

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/mizuamedesu/lightscan/engine"
	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/valuemodel"
)

// getFName decodes the interned name at the given FName index, per §4.8's
// name-decode algorithm.
func (e *Engine) getFName(index uint32) (string, error) {
	const blockShift = 16
	const blockMask = 1<<blockShift - 1

	block := index >> blockShift
	offset := index & blockMask

	blockPtrData, err := e.proc.Read(e.gnames+uintptr(block)*8, 8)
	if err != nil {
		return "", lserr.Wrap(lserr.MemoryError, err, "unreal: reading GNames block table")
	}
	blockBase := uintptr(binary.LittleEndian.Uint64(blockPtrData))
	if blockBase == 0 {
		return "", lserr.New(lserr.MemoryError, "unreal: null GNames block %d", block)
	}

	entryAddr := blockBase + uintptr(offset)*2
	header, err := e.proc.Read(entryAddr, 2)
	if err != nil {
		return "", lserr.Wrap(lserr.MemoryError, err, "unreal: reading FNameEntry header")
	}
	headerVal := binary.LittleEndian.Uint16(header)
	wide := headerVal&1 != 0
	length := int(headerVal >> 6)
	if length == 0 {
		return "", nil
	}

	byteLen := length
	if wide {
		byteLen = length * 2
	}
	strData, err := e.proc.Read(entryAddr+2, byteLen)
	if err != nil {
		return "", lserr.Wrap(lserr.MemoryError, err, "unreal: reading FNameEntry string")
	}

	if !wide {
		// ASCII entries decode byte-for-byte; invalid units surface as
		// non-printable runes rather than failing the read.
		return string(strData), nil
	}

	units := make([]uint16, length)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(strData[i*2:])
	}
	return string(utf16.Decode(units)), nil
}

// getObjectName reads a UObject's embedded FName and decodes it.
func (e *Engine) getObjectName(addr uintptr) (string, error) {
	data, err := e.proc.Read(addr, uobjectSize)
	if err != nil {
		return "", lserr.Wrap(lserr.MemoryError, err, "unreal: reading object %#x", uint64(addr))
	}
	obj, ok := decodeUObject(data)
	if !ok {
		return "", lserr.New(lserr.MemoryError, "unreal: short object read at %#x", uint64(addr))
	}
	return e.getFName(obj.ComparisonIndex)
}

// enumerateObjects walks the chunked GObjects array, per §4.8's object
// enumeration algorithm. Read failures on individual chunks or items skip
// that slot rather than aborting the walk.
func (e *Engine) enumerateObjects() []uintptr {
	outer, err := e.proc.Read(e.gobjectsPtr, gobjectsChunkedArrayOffset+16)
	if err != nil {
		return nil
	}
	arr, ok := decodeChunkedObjectArray(outer)
	if !ok || arr.NumElements <= 0 {
		return nil
	}

	var objects []uintptr
	for i := int32(0); i < arr.NumElements; i++ {
		chunkIdx := i / elementsPerChunk
		chunkOffset := i % elementsPerChunk

		chunkPtrData, err := e.proc.Read(arr.ChunksPtr+uintptr(chunkIdx)*8, 8)
		if err != nil {
			continue
		}
		chunkBase := uintptr(binary.LittleEndian.Uint64(chunkPtrData))
		if chunkBase == 0 {
			continue
		}

		itemAddr := chunkBase + uintptr(chunkOffset)*uobjectItemSize
		itemData, err := e.proc.Read(itemAddr, uobjectItemSize)
		if err != nil {
			continue
		}
		item, ok := decodeUObjectItem(itemData)
		if !ok || !item.valid() {
			continue
		}
		objects = append(objects, item.Object)
	}
	return objects
}

// isClass reports whether addr's class-pointer chain converges on a
// self-referential node within maxClassHops, per §4.8's class
// identification rule.
func (e *Engine) isClass(addr uintptr) bool {
	current := addr
	for hop := 0; hop < maxClassHops; hop++ {
		data, err := e.proc.Read(current, uobjectSize)
		if err != nil {
			return false
		}
		obj, ok := decodeUObject(data)
		if !ok || obj.Class == 0 {
			return false
		}
		if obj.Class == current {
			return true
		}
		current = obj.Class
	}
	return false
}

// findClassByName linearly scans all objects, per §4.8's class-lookup
// algorithm.
func (e *Engine) findClassByName(name string) (uintptr, error) {
	for _, addr := range e.enumerateObjects() {
		objName, err := e.getObjectName(addr)
		if err != nil || objName != name {
			continue
		}
		if e.isClass(addr) {
			return addr, nil
		}
	}
	return 0, lserr.New(lserr.ClassNotFound, "unreal: class %q not found", name)
}

// resolveUStruct locates a UStruct's version-dependent fields by trying
// each candidate offset in order, per §4.8's struct-reading algorithm.
func (e *Engine) resolveUStruct(addr uintptr) (ustruct, error) {
	s, _, err := e.resolveUStructAt(addr)
	return s, err
}

// resolveUStructAt is resolveUStruct, additionally returning the offset
// (from addr) the UStruct fields were found at, so callers that read
// type-specific data immediately following those fields (e.g. a
// UFunction's call metadata) know where that data starts.
func (e *Engine) resolveUStructAt(addr uintptr) (ustruct, int, error) {
	maxOffset := ustructCandidateOffsets[0]
	for _, o := range ustructCandidateOffsets {
		if o > maxOffset {
			maxOffset = o
		}
	}
	data, err := e.proc.Read(addr, maxOffset+ustructFieldsSize)
	if err != nil {
		return ustruct{}, 0, lserr.Wrap(lserr.MemoryError, err, "unreal: reading UStruct at %#x", uint64(addr))
	}

	for _, off := range ustructCandidateOffsets {
		s, ok := decodeUStructAt(data, off)
		if ok && s.plausible(e.moduleBase, e.moduleSize) {
			return s, off, nil
		}
	}
	s, ok := decodeUStructAt(data, ustructFallbackOffset)
	if !ok {
		return ustruct{}, 0, lserr.New(lserr.MemoryError, "unreal: UStruct read too short at %#x", uint64(addr))
	}
	return s, ustructFallbackOffset, nil
}

// readFunctionFlags decodes a UFunction's function_flags and params_size,
// which sit immediately after the UStruct fields a UFunction inherits,
// per §4.9 and structures.go's ufunction offsets.
func (e *Engine) readFunctionFlags(addr uintptr) (flags uint32, paramsSize int, ok bool) {
	_, off, err := e.resolveUStructAt(addr)
	if err != nil {
		return 0, 0, false
	}
	data, err := e.proc.Read(addr+uintptr(off)+ustructFieldsSize, ufunctionExtraSize)
	if err != nil || len(data) < ufunctionExtraSize {
		return 0, 0, false
	}
	flags = binary.LittleEndian.Uint32(data[ufunctionFlagsOffset:])
	paramsSize = int(binary.LittleEndian.Uint16(data[ufunctionParamsSizeOffset:]))
	return flags, paramsSize, true
}

func (e *Engine) getClassInfoAt(addr uintptr) (engine.ClassInfo, error) {
	name, err := e.getObjectName(addr)
	if err != nil {
		return engine.ClassInfo{}, err
	}
	return engine.ClassInfo{Handle: engine.Handle(addr), Name: name}, nil
}

// findMethodOnClass follows the children linked list, per §4.8's method
// traversal algorithm.
func (e *Engine) findMethodOnClass(classAddr uintptr, name string) (uintptr, bool) {
	s, err := e.resolveUStruct(classAddr)
	if err != nil {
		return 0, false
	}
	current := s.Children
	for i := 0; current != 0 && i < maxTraversal; i++ {
		if fieldName, err := e.getObjectName(current); err == nil && fieldName == name {
			return current, true
		}
		next, ok := e.readNextUField(current)
		if !ok {
			break
		}
		current = next
	}
	return 0, false
}

func (e *Engine) readNextUField(nodeAddr uintptr) (uintptr, bool) {
	data, err := e.proc.Read(nodeAddr+ufieldNextOffset, 8)
	if err != nil {
		return 0, false
	}
	return uintptr(binary.LittleEndian.Uint64(data)), true
}

func (e *Engine) getMethodInfoAt(addr uintptr) (engine.MethodInfo, error) {
	name, err := e.getObjectName(addr)
	if err != nil {
		return engine.MethodInfo{}, err
	}
	info := engine.MethodInfo{Handle: engine.Handle(addr), Name: name}
	if flags, paramsSize, ok := e.readFunctionFlags(addr); ok {
		info.Native = flags&funcFlagNative != 0
		info.BlueprintCallable = flags&funcFlagBlueprintCallable != 0
		info.ParameterSizeBytes = paramsSize
	}
	return info, nil
}

func (e *Engine) enumerateMethodsOnClass(classAddr uintptr) []engine.MethodInfo {
	s, err := e.resolveUStruct(classAddr)
	if err != nil {
		return nil
	}
	var methods []engine.MethodInfo
	current := s.Children
	for i := 0; current != 0 && i < maxTraversal; i++ {
		if info, err := e.getMethodInfoAt(current); err == nil {
			methods = append(methods, info)
		}
		next, ok := e.readNextUField(current)
		if !ok {
			break
		}
		current = next
	}
	return methods
}

// enumerateFieldsOnClass follows child-properties as FField nodes, per
// §4.8's property traversal algorithm.
func (e *Engine) enumerateFieldsOnClass(classAddr uintptr) []engine.FieldInfo {
	s, err := e.resolveUStruct(classAddr)
	if err != nil {
		return nil
	}

	maxCandidate := fieldOffsetCandidates[0]
	for _, o := range fieldOffsetCandidates {
		if o > maxCandidate {
			maxCandidate = o
		}
	}

	var fields []engine.FieldInfo
	current := s.ChildProperties
	for i := 0; current != 0 && i < maxTraversal; i++ {
		data, err := e.proc.Read(current, fieldHeaderSize+maxCandidate+4)
		if err != nil {
			break
		}
		ff, ok := decodeFField(data)
		if !ok {
			break
		}
		name, _ := e.getFName(ff.Name)
		offset, ok := probeFieldOffset(data)
		if ok {
			fields = append(fields, engine.FieldInfo{
				Handle: engine.Handle(offset),
				Name:   name,
				Offset: offset,
			})
		}
		current = ff.Next
	}
	return fields
}

// probeFieldOffset finds the first plausible field offset among the
// candidate positions beyond an FField's header, per §4.8.
func probeFieldOffset(data []byte) (int, bool) {
	for _, c := range fieldOffsetCandidates {
		if fieldHeaderSize+c+4 > len(data) {
			continue
		}
		v := int(binary.LittleEndian.Uint32(data[fieldHeaderSize+c:]))
		if v >= 0 && v < maxFieldOffsetValue {
			return v, true
		}
	}
	return 0, false
}

// readFieldAt reads a primitive or struct field value, per §4.8's
// field-read algorithm.
func (e *Engine) readFieldAt(instanceAddr uintptr, offset int, typ valuemodel.ValueType) (valuemodel.Value, error) {
	size := int(typ.Size())
	data, err := e.proc.Read(instanceAddr+uintptr(offset), size)
	if err != nil {
		return valuemodel.Value{}, lserr.Wrap(lserr.MemoryError, err, "unreal: reading field at %#x+%d", uint64(instanceAddr), offset)
	}
	v, ok := valuemodel.FromBytes(data, typ)
	if !ok {
		return valuemodel.Value{}, lserr.New(lserr.MemoryError, "unreal: short field read at %#x+%d", uint64(instanceAddr), offset)
	}
	return v, nil
}

// writeFieldAt writes a primitive or struct field value, per §4.8's
// field-write algorithm.
func (e *Engine) writeFieldAt(instanceAddr uintptr, offset int, value valuemodel.Value) error {
	if err := e.proc.Write(instanceAddr+uintptr(offset), value.ToBytes()); err != nil {
		return lserr.Wrap(lserr.MemoryError, err, "unreal: writing field at %#x+%d", uint64(instanceAddr), offset)
	}
	return nil
}
