// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"strconv"
	"strings"

	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/valuemodel"
)

func parseAddr(s string) (uintptr, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, lserr.Wrap(lserr.InvalidArgument, err, "invalid address %q", s)
	}
	return uintptr(n), nil
}

func parseValueType(s string) (valuemodel.ValueType, error) {
	if strings.HasPrefix(s, "bytes:") {
		n, err := strconv.Atoi(strings.TrimPrefix(s, "bytes:"))
		if err != nil || n <= 0 {
			return valuemodel.ValueType{}, lserr.New(lserr.InvalidArgument, "invalid byte-array length in %q", s)
		}
		return valuemodel.ValueType{Kind: valuemodel.ByteArray, Len: n}, nil
	}
	kinds := map[string]valuemodel.Type{
		"i8": valuemodel.I8, "i16": valuemodel.I16, "i32": valuemodel.I32, "i64": valuemodel.I64,
		"u8": valuemodel.U8, "u16": valuemodel.U16, "u32": valuemodel.U32, "u64": valuemodel.U64,
		"f32": valuemodel.F32, "f64": valuemodel.F64,
	}
	k, ok := kinds[s]
	if !ok {
		return valuemodel.ValueType{}, lserr.New(lserr.InvalidArgument, "unknown value type %q", s)
	}
	return valuemodel.ValueType{Kind: k}, nil
}

func parsePredicate(s string) (valuemodel.Predicate, error) {
	preds := map[string]valuemodel.Predicate{
		"exact": valuemodel.Exact, "gt": valuemodel.GreaterThan, "lt": valuemodel.LessThan,
		"between": valuemodel.Between, "unknown": valuemodel.UnknownInitial,
		"increased": valuemodel.Increased, "decreased": valuemodel.Decreased,
		"changed": valuemodel.Changed, "unchanged": valuemodel.Unchanged,
	}
	p, ok := preds[s]
	if !ok {
		return 0, lserr.New(lserr.InvalidArgument, "unknown predicate %q", s)
	}
	return p, nil
}

// parseValue parses s as a literal of vt's kind. Byte arrays parse as
// hex, e.g. "DE AD BE EF".
func parseValue(s string, vt valuemodel.ValueType) (valuemodel.Value, error) {
	v := valuemodel.Value{Type: vt}
	switch vt.Kind {
	case valuemodel.I8, valuemodel.I16, valuemodel.I32, valuemodel.I64:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return valuemodel.Value{}, lserr.Wrap(lserr.InvalidArgument, err, "invalid integer %q", s)
		}
		v.I = n
	case valuemodel.U8, valuemodel.U16, valuemodel.U32, valuemodel.U64:
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return valuemodel.Value{}, lserr.Wrap(lserr.InvalidArgument, err, "invalid unsigned integer %q", s)
		}
		v.U = n
	case valuemodel.F32, valuemodel.F64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return valuemodel.Value{}, lserr.Wrap(lserr.InvalidArgument, err, "invalid float %q", s)
		}
		v.F = f
	case valuemodel.ByteArray:
		fields := strings.Fields(s)
		b := make([]byte, 0, len(fields))
		for _, tok := range fields {
			n, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return valuemodel.Value{}, lserr.Wrap(lserr.InvalidArgument, err, "invalid hex byte %q", tok)
			}
			b = append(b, byte(n))
		}
		v.Bytes = b
	}
	return v, nil
}
