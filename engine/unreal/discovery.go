// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unreal

import (
	"encoding/binary"

	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/patternscan"
)

// scanModule runs a pattern over the module's readable, committed regions
// and returns every absolute match address, capped at maxPatternTries.
func (e *Engine) scanModule(pat patternscan.Pattern) []uintptr {
	regions, err := e.proc.Regions()
	if err != nil {
		return nil
	}
	var matches []uintptr
	for _, r := range regions {
		if !r.Readable {
			continue
		}
		if r.Base < e.moduleBase || r.Base >= e.moduleBase+uintptr(e.moduleSize) {
			continue
		}
		data, err := e.proc.Read(r.Base, int(r.Size))
		if err != nil {
			continue
		}
		for _, off := range pat.FindAll(data) {
			matches = append(matches, r.Base+uintptr(off))
			if len(matches) >= maxPatternTries {
				return matches
			}
		}
	}
	return matches
}

func (e *Engine) inHeapRange(ptr uintptr) bool {
	return ptr >= e.moduleBase && ptr < e.moduleBase+uintptr(e.moduleSize)+heapSlack
}

// findGObjects locates the GObjects pointer location, per §4.7 step 2.
func (e *Engine) findGObjects() (uintptr, error) {
	for _, ap := range gobjectsPatterns {
		pat, err := patternscan.Parse(ap.text)
		if err != nil {
			continue
		}
		for _, instrAddr := range e.scanModule(pat) {
			instr, err := e.proc.Read(instrAddr, pat.Len()+8)
			if err != nil {
				continue
			}
			dispOffset, instrLen := ap.ripGeometry()
			ptrLoc, ok := patternscan.ResolveRIPRelative(instrAddr, instr, dispOffset, instrLen)
			if !ok || !e.inHeapRange(ptrLoc) {
				continue
			}
			ptrData, err := e.proc.Read(ptrLoc, 8)
			if err != nil {
				continue
			}
			if binary.LittleEndian.Uint64(ptrData) == 0 {
				continue
			}
			e.log.Info().Uint64("ptr", uint64(ptrLoc)).Msg("unreal: GObjects pointer found")
			return ptrLoc, nil
		}
	}
	return 0, lserr.New(lserr.InitializationFailed, "unreal: GObjects not found")
}

// findGNames locates the GNames pool (or a pointer to it), per §4.7 step 3.
func (e *Engine) findGNames() (uintptr, error) {
	for _, ap := range gnamesPatterns {
		pat, err := patternscan.Parse(ap.text)
		if err != nil {
			continue
		}
		for _, instrAddr := range e.scanModule(pat) {
			instr, err := e.proc.Read(instrAddr, pat.Len()+8)
			if err != nil {
				continue
			}
			dispOffset, instrLen := ap.ripGeometry()
			ptrLoc, ok := patternscan.ResolveRIPRelative(instrAddr, instr, dispOffset, instrLen)
			if !ok || !e.inHeapRange(ptrLoc) {
				continue
			}
			ptrData, err := e.proc.Read(ptrLoc, 8)
			if err != nil {
				continue
			}
			gnames := uintptr(binary.LittleEndian.Uint64(ptrData))
			if gnames == 0 {
				// Some versions hand back the pool address directly
				// rather than a pointer to it; use the location itself.
				e.log.Warn().Uint64("loc", uint64(ptrLoc)).Msg("unreal: GNames pointer null, using location directly")
				return ptrLoc, nil
			}
			e.log.Info().Uint64("gnames", uint64(gnames)).Msg("unreal: GNames found")
			return gnames, nil
		}
	}
	return 0, lserr.New(lserr.InitializationFailed, "unreal: GNames not found")
}

// findProcessEvent locates ProcessEvent, per §4.7 step 4: first match, no
// dereference.
func (e *Engine) findProcessEvent() (uintptr, error) {
	for _, ap := range processEventPatterns {
		pat, err := patternscan.Parse(ap.text)
		if err != nil {
			continue
		}
		if matches := e.scanModule(pat); len(matches) > 0 {
			e.log.Info().Uint64("addr", uint64(matches[0])).Msg("unreal: ProcessEvent found")
			return matches[0], nil
		}
	}
	return 0, lserr.New(lserr.InitializationFailed, "unreal: ProcessEvent not found")
}
