// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner implements the first-scan/next-scan candidate-address
// state machine: an initial sweep over a process's committed memory
// regions for values matching a predicate, followed by repeated
// re-reads that narrow the surviving candidate set as the target's
// memory changes.
package scanner

import (
	"sync"

	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/simd"
	"github.com/mizuamedesu/lightscan/internal/valuemodel"
	"github.com/mizuamedesu/lightscan/internal/winproc"
)

// ProcessReader is the subset of winproc.Process a Scanner needs. Accepting
// an interface (rather than *winproc.Process directly) keeps the state
// machine testable without a live Windows target.
type ProcessReader interface {
	Regions() ([]winproc.Region, error)
	Read(addr uintptr, size int) ([]byte, error)
	Write(addr uintptr, data []byte) error
}

// State is the scanner's lifecycle stage.
type State int

const (
	StateEmpty State = iota
	StateScanning
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateScanning:
		return "scanning"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Bounds carries the lo/hi reference values for the Between predicate; it
// is ignored by every other predicate.
type Bounds struct {
	Lo, Hi float64
}

const regionChunkSize = 1 << 20 // 1 MiB, per first-scan's tolerant chunked read

// Scanner owns one process handle's current result set. Only one scan
// runs at a time: a mutex serializes concurrent calls on one Scanner.
type Scanner struct {
	mu        sync.Mutex
	proc      ProcessReader
	state     State
	valueType valuemodel.ValueType
	alignment int64
	results   []Result
	scanCount int
}

// New creates a Scanner over proc. The scanner starts Empty.
func New(proc ProcessReader) *Scanner {
	return &Scanner{proc: proc, state: StateEmpty}
}

// State returns the scanner's current lifecycle stage.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FirstScan discards any existing result set and sweeps every region
// consistent with opts, recording every aligned position whose decoded
// value satisfies pred (against ref, for value-requiring predicates).
// It returns the number of surviving results.
func (s *Scanner) FirstScan(ref valuemodel.Value, pred valuemodel.Predicate, bounds Bounds, opts valuemodel.Options) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateScanning
	s.results = nil
	s.valueType = opts.Type
	s.alignment = opts.Alignment
	if s.alignment < opts.Type.Alignment() {
		s.alignment = opts.Type.Alignment()
	}

	regions, err := s.proc.Regions()
	if err != nil {
		return 0, lserr.Wrap(lserr.PlatformError, err, "FirstScan: querying regions")
	}

	var results []Result
	for _, r := range regions {
		if opts.ReadableOnly && !r.Readable {
			continue
		}
		if opts.WritableOnly && !r.Writable {
			continue
		}
		if opts.ExecutableOnly && !r.Executable {
			continue
		}
		if r.Size == 0 {
			continue
		}
		buf := s.readRegionTolerant(r.Base, r.Size)
		results = append(results, s.scanBuffer(buf, r.Base, ref, pred, bounds)...)
	}

	s.results = results
	s.state = StateReady
	s.scanCount++
	return len(s.results), nil
}

// readRegionTolerant reads size bytes at base in regionChunkSize pieces,
// zero-filling any chunk that fails to read rather than aborting the
// whole region.
func (s *Scanner) readRegionTolerant(base uintptr, size uint64) []byte {
	buf := make([]byte, size)
	for off := uint64(0); off < size; off += regionChunkSize {
		n := regionChunkSize
		if remaining := size - off; remaining < uint64(n) {
			n = int(remaining)
		}
		data, err := s.proc.Read(base+uintptr(off), n)
		if err != nil {
			continue // leave this chunk's span zeroed
		}
		copy(buf[off:], data)
	}
	return buf
}

// scanBuffer evaluates pred over every alignment-stepped position in buf,
// labeling results with absolute addresses relative to base.
func (s *Scanner) scanBuffer(buf []byte, base uintptr, ref valuemodel.Value, pred valuemodel.Predicate, bounds Bounds) []Result {
	align := int(s.alignment)
	if align <= 0 {
		align = 1
	}

	if pred == valuemodel.Exact && align == 4 {
		switch s.valueType.Kind {
		case valuemodel.I32:
			offsets := simd.ScanI32(buf, int32(ref.I), align)
			return s.resultsFromOffsets(buf, base, offsets)
		case valuemodel.F32:
			offsets := simd.ScanF32(buf, float32(ref.F), align)
			return s.resultsFromOffsets(buf, base, offsets)
		}
	}

	size := int(s.valueType.Size())
	var results []Result
	for off := 0; off+size <= len(buf); off += align {
		v, ok := valuemodel.FromBytes(buf[off:], s.valueType)
		if !ok {
			break
		}
		if !s.matchesFirstScan(v, ref, pred, bounds) {
			continue
		}
		bytes := v.ToBytes()
		results = append(results, Result{Address: base + uintptr(off), Previous: bytes, Current: bytes})
	}
	return results
}

func (s *Scanner) matchesFirstScan(v, ref valuemodel.Value, pred valuemodel.Predicate, bounds Bounds) bool {
	switch pred {
	case valuemodel.UnknownInitial:
		return true
	case valuemodel.Between:
		return valuemodel.Compare(v, ref, pred, bounds.Lo, bounds.Hi)
	case valuemodel.Exact, valuemodel.GreaterThan, valuemodel.LessThan:
		return valuemodel.Compare(v, ref, pred, bounds.Lo, bounds.Hi)
	default:
		// History predicates are meaningless on a first scan; nothing matches.
		return false
	}
}

func (s *Scanner) resultsFromOffsets(buf []byte, base uintptr, offsets []int) []Result {
	size := int(s.valueType.Size())
	results := make([]Result, 0, len(offsets))
	for _, off := range offsets {
		bytes := append([]byte(nil), buf[off:off+size]...)
		results = append(results, Result{Address: base + uintptr(off), Previous: bytes, Current: bytes})
	}
	return results
}

// NextScan re-reads every existing result's address, drops any that can no
// longer be read, and applies pred to the survivors. It returns the
// number of surviving results.
func (s *Scanner) NextScan(ref valuemodel.Value, pred valuemodel.Predicate, bounds Bounds) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty {
		return 0, lserr.New(lserr.InvalidArgument, "NextScan: no active scan; call FirstScan first")
	}
	s.state = StateScanning

	size := int(s.valueType.Size())
	survivors := make([]Result, 0, len(s.results))
	for _, r := range s.results {
		data, err := s.proc.Read(r.Address, size)
		if err != nil {
			continue // target memory may have been unmapped; drop silently
		}
		fresh, ok := valuemodel.FromBytes(data, s.valueType)
		if !ok {
			continue
		}

		var match bool
		if pred.RequiresHistory() {
			prevCurrent, ok := valuemodel.FromBytes(r.Current, s.valueType)
			if !ok {
				continue
			}
			match = matchesHistory(fresh, prevCurrent, pred)
		} else {
			match = valuemodel.Compare(fresh, ref, pred, bounds.Lo, bounds.Hi)
		}
		if !match {
			continue
		}

		survivors = append(survivors, Result{
			Address:  r.Address,
			Previous: r.Current,
			Current:  fresh.ToBytes(),
		})
	}

	s.results = survivors
	s.state = StateReady
	s.scanCount++
	return len(s.results), nil
}

func matchesHistory(fresh, previous valuemodel.Value, pred valuemodel.Predicate) bool {
	switch pred {
	case valuemodel.Increased:
		return fresh.AsF64() > previous.AsF64()
	case valuemodel.Decreased:
		return fresh.AsF64() < previous.AsF64()
	case valuemodel.Changed:
		return !fresh.Equal(previous)
	case valuemodel.Unchanged:
		return fresh.Equal(previous)
	default:
		return false
	}
}

// Reset clears the result set and scan count, returning the scanner to
// State Empty.
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
	s.scanCount = 0
	s.state = StateEmpty
}

// LoadResults replaces the scanner's result set with a previously
// captured snapshot (as returned by Results), moving it to State Ready.
// It lets a caller resume next-scan refinement across process restarts.
func (s *Scanner) LoadResults(r Results) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append([]Result(nil), r.Results...)
	s.valueType = r.Type
	s.alignment = r.Type.Alignment()
	s.scanCount = r.ScanCount
	s.state = StateReady
}

// Results returns a snapshot of the current result set, in scan order.
func (s *Scanner) Results() Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return Results{Results: out, Type: s.valueType, ScanCount: s.scanCount}
}

// ReadValue reads and decodes a value of typ at addr directly, bypassing
// the result set.
func (s *Scanner) ReadValue(addr uintptr, typ valuemodel.ValueType) (valuemodel.Value, error) {
	data, err := s.proc.Read(addr, int(typ.Size()))
	if err != nil {
		return valuemodel.Value{}, lserr.Wrap(lserr.MemoryError, err, "ReadValue(%#x)", addr)
	}
	v, ok := valuemodel.FromBytes(data, typ)
	if !ok {
		return valuemodel.Value{}, lserr.New(lserr.MemoryError, "ReadValue(%#x): short read", addr)
	}
	return v, nil
}

// WriteValue encodes v and writes it to addr.
func (s *Scanner) WriteValue(addr uintptr, v valuemodel.Value) error {
	if err := s.proc.Write(addr, v.ToBytes()); err != nil {
		return lserr.Wrap(lserr.MemoryError, err, "WriteValue(%#x)", addr)
	}
	return nil
}
