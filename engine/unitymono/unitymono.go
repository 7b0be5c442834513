// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package unitymono is a stub Engine variant for Unity Mono-scripting
// backend targets. It satisfies the engine.Engine capability set so
// callers can select it uniformly, but every reflection capability
// reports unsupported-operation: a real implementation would walk the
// Mono runtime's MonoImage/MonoClass tables, which this toolkit does not
// yet reverse-engineer.
package unitymono

import (
	"github.com/mizuamedesu/lightscan/engine"
	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/valuemodel"
)

// Engine is the Unity-Mono stub backend.
type Engine struct {
	initialized bool
}

// New returns an uninitialized Unity-Mono stub backend.
func New() *Engine { return &Engine{} }

func (e *Engine) Backend() engine.Backend { return engine.UnityMono }

func (e *Engine) Version() (string, bool) { return "", false }

// Initialize succeeds trivially: there are no anchors to resolve for a
// backend with no implemented capabilities.
func (e *Engine) Initialize() error {
	e.initialized = true
	return nil
}

func (e *Engine) IsInitialized() bool { return e.initialized }

func unsupported(op string) error {
	return lserr.New(lserr.Unsupported, "unity-mono: %s is not implemented", op)
}

func (e *Engine) FindClass(name string) (engine.ClassInfo, error) {
	return engine.ClassInfo{}, unsupported("FindClass")
}

func (e *Engine) GetClassInfo(h engine.Handle) (engine.ClassInfo, error) {
	return engine.ClassInfo{}, unsupported("GetClassInfo")
}

func (e *Engine) EnumerateClasses() ([]engine.ClassInfo, error) {
	return nil, unsupported("EnumerateClasses")
}

func (e *Engine) FindMethod(class engine.Handle, name string) (engine.MethodInfo, error) {
	return engine.MethodInfo{}, unsupported("FindMethod")
}

func (e *Engine) GetMethodInfo(h engine.Handle) (engine.MethodInfo, error) {
	return engine.MethodInfo{}, unsupported("GetMethodInfo")
}

func (e *Engine) EnumerateMethods(class engine.Handle) ([]engine.MethodInfo, error) {
	return nil, unsupported("EnumerateMethods")
}

func (e *Engine) FindField(class engine.Handle, name string) (engine.FieldInfo, error) {
	return engine.FieldInfo{}, unsupported("FindField")
}

func (e *Engine) GetFieldInfo(h engine.Handle) (engine.FieldInfo, error) {
	return engine.FieldInfo{}, unsupported("GetFieldInfo")
}

func (e *Engine) EnumerateFields(class engine.Handle) ([]engine.FieldInfo, error) {
	return nil, unsupported("EnumerateFields")
}

func (e *Engine) GetInstances(class engine.Handle) ([]engine.Handle, error) {
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
