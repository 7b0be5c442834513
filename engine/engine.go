// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package engine defines the uniform reflection capability surface a
// game-engine backend (Unreal, Unity-Mono, Unity-IL2CPP, Native) exposes
// over an already-open process handle: finding and enumerating classes,
// methods, and fields; enumerating live instances; invoking methods; and
// reading or writing field values. A backend that cannot implement a
// given capability reports it as an error rather than omitting the
// method.
package engine

import "github.com/mizuamedesu/lightscan/internal/valuemodel"

// Backend identifies which closed set of engine semantics an Engine
// implements. New variants are added here, not by widening the
// capability set itself.
type Backend int

const (
	Unreal Backend = iota
	UnityMono
	UnityIL2CPP
	Native
)

func (b Backend) String() string {
	switch b {
	case Unreal:
		return "unreal"
	case UnityMono:
		return "unity-mono"
	case UnityIL2CPP:
		return "unity-il2cpp"
	case Native:
		return "native"
	default:
		return "unknown"
	}
}

// Handle is an opaque, engine-local identifier. Equality is by raw value;
// a handle from one Engine instance is not meaningful to another.
type Handle uint64

// ClassInfo describes a discovered class.
type ClassInfo struct {
	Handle Handle
	Name   string
}

// MethodInfo describes a discovered method.
type MethodInfo struct {
	Handle             Handle
	Name               string
	Native             bool
	BlueprintCallable  bool
	ParameterSizeBytes int
}

// IsNative reports whether the method is implemented natively (as opposed
// to interpreted/scripted).
func (m MethodInfo) IsNative() bool { return m.Native }

// IsBlueprintCallable reports whether the method may be invoked from
// Blueprint/scripted callers, per the engine's own flag bits.
func (m MethodInfo) IsBlueprintCallable() bool { return m.BlueprintCallable }

// FieldInfo describes a discovered field.
type FieldInfo struct {
	Handle Handle
	Name   string
	Offset int
	Type   valuemodel.ValueType
}

// Engine is the capability set every backend variant implements. A
// capability the variant provides fails with lserr.NotInitialized until
// Initialize succeeds. A capability the variant cannot provide fails with
// lserr.Unsupported rather than panicking or silently doing nothing; the
// Unity variants and several native operations report Unsupported
// without checking initialization first.
type Engine interface {
	// Backend identifies which variant this Engine implements.
	Backend() Backend
	// Version returns the engine version string, if known.
	Version() (string, bool)

	// Initialize resolves the backend's anchors (signatures, vtables,
	// export tables — whatever the variant needs) against the already-open
	// target. It must be called, and must succeed, before any other method.
	Initialize() error
	// IsInitialized reports whether Initialize has succeeded.
	IsInitialized() bool

	FindClass(name string) (ClassInfo, error)
	GetClassInfo(h Handle) (ClassInfo, error)
	EnumerateClasses() ([]ClassInfo, error)

	FindMethod(class Handle, name string) (MethodInfo, error)
	GetMethodInfo(h Handle) (MethodInfo, error)
	EnumerateMethods(class Handle) ([]MethodInfo, error)

	FindField(class Handle, name string) (FieldInfo, error)
	GetFieldInfo(h Handle) (FieldInfo, error)
	EnumerateFields(class Handle) ([]FieldInfo, error)

	GetInstances(class Handle) ([]Handle, error)
	GetInstanceClass(instance Handle) (Handle, error)

	Invoke(instance Handle, method Handle, args []valuemodel.Value) (valuemodel.Value, error)
	ReadField(instance Handle, field Handle) (valuemodel.Value, error)
	WriteField(instance Handle, field Handle, value valuemodel.Value) error
}
