// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scanner

import (
	"fmt"

	"github.com/mizuamedesu/lightscan/internal/valuemodel"
)

// Result is one surviving candidate address: its location and the bytes
// read there on the previous and current scans. Previous equals Current
// immediately after a first-scan.
type Result struct {
	Address  uintptr
	Previous []byte
	Current  []byte
}

// Display renders a result for the CLI, decoding Current as typ.
func (r Result) Display(typ valuemodel.ValueType) string {
	cur, ok := valuemodel.FromBytes(r.Current, typ)
	if !ok {
		return fmt.Sprintf("%#x = <%d bytes>", r.Address, len(r.Current))
	}
	return fmt.Sprintf("%#x = %s", r.Address, cur)
}

func (r Result) String() string {
	return fmt.Sprintf("{addr: %#x, previous: % x, current: % x}", r.Address, r.Previous, r.Current)
}

// Results is the serializable snapshot of a scanner's result set.
type Results struct {
	Results   []Result
	Type      valuemodel.ValueType
	ScanCount int
}
