// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package valuemodel defines the tagged primitive/byte-array value types
// the scanner reads, writes, and compares.
package valuemodel

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Type is the tag for a scannable value's representation. It is not
// canonical across byte-array lengths: two ByteArray types are distinct
// unless their Len also matches.
type Type uint8

const (
	I8 Type = iota
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	ByteArray
)

func (t Type) String() string {
	switch t {
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case ByteArray:
		return "bytearray"
	default:
		return "unknown"
	}
}

// ValueType pairs a Type with the extra information (array length) it
// needs to know its own size.
type ValueType struct {
	Kind Type
	// Len is the byte-array length; meaningful only when Kind == ByteArray.
	Len int
}

// Size returns the canonical byte size of the type.
func (vt ValueType) Size() int64 {
	switch vt.Kind {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	case ByteArray:
		return int64(vt.Len)
	default:
		panic("valuemodel: unknown type")
	}
}

// Alignment returns the type's natural alignment: equal to its size for
// primitives, 1 for byte arrays.
func (vt ValueType) Alignment() int64 {
	if vt.Kind == ByteArray {
		return 1
	}
	return vt.Size()
}

// Value is a ValueType tagged with its concrete payload. Exactly one of
// the numeric fields is meaningful, selected by Type.Kind; Bytes holds the
// payload for ByteArray.
type Value struct {
	Type  ValueType
	I     int64   // I8, I16, I32, I64 (sign-extended)
	U     uint64  // U8, U16, U32, U64
	F     float64 // F32, F64
	Bytes []byte  // ByteArray
}

// FromBytes decodes a value of the given type from the front of b. It
// returns false if b is shorter than the type's byte size.
func FromBytes(b []byte, vt ValueType) (Value, bool) {
	size := vt.Size()
	if int64(len(b)) < size {
		return Value{}, false
	}
	b = b[:size]
	v := Value{Type: vt}
	switch vt.Kind {
	case I8:
		v.I = int64(int8(b[0]))
	case I16:
		v.I = int64(int16(binary.LittleEndian.Uint16(b)))
	case I32:
		v.I = int64(int32(binary.LittleEndian.Uint32(b)))
	case I64:
		v.I = int64(binary.LittleEndian.Uint64(b))
	case U8:
		v.U = uint64(b[0])
	case U16:
		v.U = uint64(binary.LittleEndian.Uint16(b))
	case U32:
		v.U = uint64(binary.LittleEndian.Uint32(b))
	case U64:
		v.U = binary.LittleEndian.Uint64(b)
	case F32:
		v.F = float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case F64:
		v.F = math.Float64frombits(binary.LittleEndian.Uint64(b))
	case ByteArray:
		v.Bytes = append([]byte(nil), b...)
	default:
		panic("valuemodel: unknown type")
	}
	return v, true
}

// ToBytes encodes v as little-endian bytes of length Type.Size().
func (v Value) ToBytes() []byte {
	size := v.Type.Size()
	b := make([]byte, size)
	switch v.Type.Kind {
	case I8:
		b[0] = byte(v.I)
	case I16:
		binary.LittleEndian.PutUint16(b, uint16(v.I))
	case I32:
		binary.LittleEndian.PutUint32(b, uint32(v.I))
	case I64:
		binary.LittleEndian.PutUint64(b, uint64(v.I))
	case U8:
		b[0] = byte(v.U)
	case U16:
		binary.LittleEndian.PutUint16(b, uint16(v.U))
	case U32:
		binary.LittleEndian.PutUint32(b, uint32(v.U))
	case U64:
		binary.LittleEndian.PutUint64(b, v.U)
	case F32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v.F)))
	case F64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v.F))
	case ByteArray:
		copy(b, v.Bytes)
	default:
		panic("valuemodel: unknown type")
	}
	return b
}

// AsF64 promotes v to a float64 for ordering comparisons. Byte arrays
// promote to 0, matching the reference implementation: Between/Greater/
// Less are meaningless for them and never reached by the scanner because
// only numeric value types drive those predicates.
func (v Value) AsF64() float64 {
	switch v.Type.Kind {
	case I8, I16, I32, I64:
		return float64(v.I)
	case U8, U16, U32, U64:
		return float64(v.U)
	case F32, F64:
		return v.F
	default:
		return 0
	}
}

// Equal reports bit-exact equality: for floats, identical bits (not
// numeric equality, so NaN-bearing buffers compare as written); for byte
// arrays, equal length and content.
func (v Value) Equal(o Value) bool {
	if v.Type.Kind != o.Type.Kind {
		return false
	}
	switch v.Type.Kind {
	case ByteArray:
		if len(v.Bytes) != len(o.Bytes) {
			return false
		}
		for i := range v.Bytes {
			if v.Bytes[i] != o.Bytes[i] {
				return false
			}
		}
		return true
	case F32, F64:
		return math.Float64bits(v.F) == math.Float64bits(o.F)
	case I8, I16, I32, I64:
		return v.I == o.I
	default:
		return v.U == o.U
	}
}

func (v Value) String() string {
	switch v.Type.Kind {
	case I8, I16, I32, I64:
		return fmt.Sprintf("%d", v.I)
	case U8, U16, U32, U64:
		return fmt.Sprintf("%d", v.U)
	case F32, F64:
		return fmt.Sprintf("%v", v.F)
	case ByteArray:
		return fmt.Sprintf("% X", v.Bytes)
	default:
		return "?"
	}
}

// Predicate is a scan comparison. The first four require a reference
// Value; the last four only make sense on a next-scan, since they compare
// against a remembered previous value.
type Predicate int

const (
	Exact Predicate = iota
	GreaterThan
	LessThan
	Between
	UnknownInitial
	Increased
	Decreased
	Changed
	Unchanged
)

// RequiresValue reports whether the predicate needs a caller-supplied
// reference value.
func (p Predicate) RequiresValue() bool {
	return p == Exact || p == GreaterThan || p == LessThan || p == Between
}

// RequiresHistory reports whether the predicate needs a remembered
// previous value rather than (or in addition to) a reference value.
func (p Predicate) RequiresHistory() bool {
	return p == Increased || p == Decreased || p == Changed || p == Unchanged
}

// Compare applies predicate p to a candidate value v against a reference
// ref. Between is closed on both ends. Exact is bit-exact via Equal;
// Greater/Less/Between promote both sides to f64.
func Compare(v, ref Value, p Predicate, lo, hi float64) bool {
	switch p {
	case Exact:
		return v.Equal(ref)
	case GreaterThan:
		return v.AsF64() > ref.AsF64()
	case LessThan:
		return v.AsF64() < ref.AsF64()
	case Between:
		f := v.AsF64()
		return f >= lo && f <= hi
	case UnknownInitial:
		return true
	default:
		panic("valuemodel: Compare called with a history predicate")
	}
}

// Options configures a scan: the value type, the alignment to stride by
// (defaults to the type's natural alignment; callers may only raise it),
// and the region filters applied before reading.
type Options struct {
	Type           ValueType
	Alignment      int64
	ReadableOnly   bool
	WritableOnly   bool
	ExecutableOnly bool
}

// DefaultOptions returns Options for vt with the type's natural alignment
// and readable-only region filtering, matching the reference
// implementation's ScanOptions defaults.
func DefaultOptions(vt ValueType) Options {
	return Options{
		Type:         vt,
		Alignment:    vt.Alignment(),
		ReadableOnly: true,
	}
}
