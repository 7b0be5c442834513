// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/mizuamedesu/lightscan/engine"
	"github.com/mizuamedesu/lightscan/engine/native"
	"github.com/mizuamedesu/lightscan/engine/unitymono"
	"github.com/mizuamedesu/lightscan/engine/unityil2cpp"
	"github.com/mizuamedesu/lightscan/engine/unreal"
	"github.com/mizuamedesu/lightscan/internal/lserr"
	"github.com/mizuamedesu/lightscan/internal/valuemodel"
	"github.com/mizuamedesu/lightscan/internal/winproc"
	"github.com/mizuamedesu/lightscan/scanner"
)

// session holds the state an attached console shares across commands: one
// open process handle, its scanner, and (once initialized) one engine
// backend. A session is not safe for concurrent use from multiple
// goroutines; the console drives it from a single reader loop.
type session struct {
	proc *winproc.Process
	sc   *scanner.Scanner
	eng  engine.Engine

	lastType valuemodel.ValueType
}

func attach(pid uint32, name string) (*session, error) {
	p, err := winproc.Open(pid, name)
	if err != nil {
		return nil, err
	}
	return &session{proc: p, sc: scanner.New(p)}, nil
}

func (s *session) close() {
	if s.proc != nil {
		s.proc.Close()
	}
}

// dispatch parses one console line and returns its textual reply.
func (s *session) dispatch(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "modules":
		return s.cmdModules()
	case "regions":
		return s.cmdRegions()
	case "scan":
		return s.cmdScan(args)
	case "engine":
		return s.cmdEngine(args)
	case "help":
		return helpText, nil
	default:
		return "", lserr.New(lserr.InvalidArgument, "unknown command %q (try \"help\")", cmd)
	}
}

const helpText = `commands:
  modules
  regions
  scan first <type> <pred> [value] [--readable] [--writable] [--executable] [--align N]
  scan next <pred> [value]
  scan reset
  scan results
  scan read <addr> <type>
  scan write <addr> <type> <value>
  engine init <unreal|unity-mono|unity-il2cpp|native>
  engine classes [name]
  engine methods <classHandle>
  engine fields <classHandle>
  engine instances <classHandle>
  engine invoke <instanceHandle> <methodHandle>
  engine read <instanceHandle> <fieldHandle>
  engine write <instanceHandle> <fieldHandle> <value>
  help`

func (s *session) cmdModules() (string, error) {
	mods, err := s.proc.Modules()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, m := range mods {
		fmt.Fprintf(&b, "%#016x %8d %s\n", m.Base, m.Size, m.Name)
	}
	return b.String(), nil
}

func (s *session) cmdRegions() (string, error) {
	regions, err := s.proc.Regions()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range regions {
		fmt.Fprintf(&b, "%#016x %10d r=%v w=%v x=%v\n", r.Base, r.Size, r.Readable, r.Writable, r.Executable)
	}
	return b.String(), nil
}

func (s *session) cmdScan(args []string) (string, error) {
	if len(args) == 0 {
		return "", lserr.New(lserr.InvalidArgument, "scan requires a subcommand")
	}
	switch args[0] {
	case "first":
		return s.scanFirst(args[1:])
	case "next":
		return s.scanNext(args[1:])
	case "reset":
		s.sc.Reset()
		return "scanner reset", nil
	case "results":
		return s.scanResults()
	case "read":
		return s.scanRead(args[1:])
	case "write":
		return s.scanWrite(args[1:])
	default:
		return "", lserr.New(lserr.InvalidArgument, "unknown scan subcommand %q", args[0])
	}
}

func (s *session) scanFirst(args []string) (string, error) {
	var positional []string
	opts := valuemodel.Options{ReadableOnly: true}
	var align int64
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--readable":
			opts.ReadableOnly = true
		case "--writable":
			opts.WritableOnly = true
		case "--executable":
			opts.ExecutableOnly = true
		case "--align":
			i++
			if i >= len(args) {
				return "", lserr.New(lserr.InvalidArgument, "--align requires a value")
			}
			fmt.Sscanf(args[i], "%d", &align)
		default:
			positional = append(positional, args[i])
		}
	}
	if len(positional) < 2 {
		return "", lserr.New(lserr.InvalidArgument, "usage: scan first <type> <pred> [value]")
	}
	vt, err := parseValueType(positional[0])
	if err != nil {
		return "", err
	}
	pred, err := parsePredicate(positional[1])
	if err != nil {
		return "", err
	}
	var ref valuemodel.Value
	if pred.RequiresValue() {
		if len(positional) < 3 {
			return "", lserr.New(lserr.InvalidArgument, "predicate %q requires a value", positional[1])
		}
		ref, err = parseValue(positional[2], vt)
		if err != nil {
			return "", err
		}
	}
	opts.Type = vt
	if align > 0 {
		opts.Alignment = align
	}
	s.lastType = vt
	n, err := s.sc.FirstScan(ref, pred, scanner.Bounds{}, opts)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d results", n), nil
}

func (s *session) scanNext(args []string) (string, error) {
	if len(args) == 0 {
		return "", lserr.New(lserr.InvalidArgument, "usage: scan next <pred> [value]")
	}
	pred, err := parsePredicate(args[0])
	if err != nil {
		return "", err
	}
	var ref valuemodel.Value
	if pred.RequiresValue() {
		if len(args) < 2 {
			return "", lserr.New(lserr.InvalidArgument, "predicate %q requires a value", args[0])
		}
		ref, err = parseValue(args[1], s.lastType)
		if err != nil {
			return "", err
		}
	}
	n, err := s.sc.NextScan(ref, pred, scanner.Bounds{})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d results", n), nil
}

func (s *session) scanResults() (string, error) {
	res := s.sc.Results()
	var b strings.Builder
	fmt.Fprintf(&b, "scan #%d, %s, %d results\n", res.ScanCount, res.Type.Kind, len(res.Results))
	limit := len(res.Results)
	if limit > 50 {
		limit = 50
	}
	for _, r := range res.Results[:limit] {
		cur, _ := valuemodel.FromBytes(r.Current, res.Type)
		fmt.Fprintf(&b, "  %#016x = %s\n", r.Address, cur.String())
	}
	if len(res.Results) > limit {
		fmt.Fprintf(&b, "  ... and %d more\n", len(res.Results)-limit)
	}
	return b.String(), nil
}

func (s *session) scanRead(args []string) (string, error) {
	if len(args) < 2 {
		return "", lserr.New(lserr.InvalidArgument, "usage: scan read <addr> <type>")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return "", err
	}
	vt, err := parseValueType(args[1])
	if err != nil {
		return "", err
	}
	v, err := s.sc.ReadValue(addr, vt)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (s *session) scanWrite(args []string) (string, error) {
	if len(args) < 3 {
		return "", lserr.New(lserr.InvalidArgument, "usage: scan write <addr> <type> <value>")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return "", err
	}
	vt, err := parseValueType(args[1])
	if err != nil {
		return "", err
	}
	v, err := parseValue(args[2], vt)
	if err != nil {
		return "", err
	}
	if err := s.sc.WriteValue(addr, v); err != nil {
		return "", err
	}
	return "ok", nil
}

func (s *session) cmdEngine(args []string) (string, error) {
	if len(args) == 0 {
		return "", lserr.New(lserr.InvalidArgument, "engine requires a subcommand")
	}
	switch args[0] {
	case "init":
		return s.engineInit(args[1:])
	case "classes":
		return s.engineClasses(args[1:])
	case "methods":
		return s.engineMethods(args[1:])
	case "fields":
		return s.engineFields(args[1:])
	case "instances":
		return s.engineInstances(args[1:])
	case "invoke":
		return s.engineInvoke(args[1:])
	case "read":
		return s.engineRead(args[1:])
	case "write":
		return s.engineWrite(args[1:])
	default:
		return "", lserr.New(lserr.InvalidArgument, "unknown engine subcommand %q", args[0])
	}
}

func (s *session) engineInit(args []string) (string, error) {
	if len(args) == 0 {
		return "", lserr.New(lserr.InvalidArgument, "usage: engine init <unreal|unity-mono|unity-il2cpp|native>")
	}
	switch args[0] {
	case "unreal":
		s.eng = unreal.New(s.proc)
	case "unity-mono":
		s.eng = unitymono.New()
	case "unity-il2cpp":
		s.eng = unityil2cpp.New()
	case "native":
		mod, err := s.proc.MainModule()
		if err != nil {
			return "", err
		}
		s.eng = native.New(s.proc, mod.Base, mod.Size)
	default:
		return "", lserr.New(lserr.InvalidArgument, "unknown backend %q", args[0])
	}
	if err := s.eng.Initialize(); err != nil {
		s.eng = nil
		return "", err
	}
	return fmt.Sprintf("%s engine initialized", s.eng.Backend()), nil
}

func (s *session) requireEngine() error {
	if s.eng == nil {
		return lserr.New(lserr.NotInitialized, "no engine initialized; run \"engine init <backend>\" first")
	}
	return nil
}

func (s *session) engineClasses(args []string) (string, error) {
	if err := s.requireEngine(); err != nil {
		return "", err
	}
	if len(args) > 0 {
		c, err := s.eng.FindClass(args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%#x %s", c.Handle, c.Name), nil
	}
	classes, err := s.eng.EnumerateClasses()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range classes {
		fmt.Fprintf(&b, "%#x %s\n", c.Handle, c.Name)
	}
	return b.String(), nil
}

func (s *session) engineMethods(args []string) (string, error) {
	if err := s.requireEngine(); err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", lserr.New(lserr.InvalidArgument, "usage: engine methods <classHandle>")
	}
	class, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	methods, err := s.eng.EnumerateMethods(class)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, m := range methods {
		fmt.Fprintf(&b, "%#x %s native=%v blueprint=%v\n", m.Handle, m.Name, m.IsNative(), m.IsBlueprintCallable())
	}
	return b.String(), nil
}

func (s *session) engineFields(args []string) (string, error) {
	if err := s.requireEngine(); err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", lserr.New(lserr.InvalidArgument, "usage: engine fields <classHandle>")
	}
	class, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	fields, err := s.eng.EnumerateFields(class)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%#x %s offset=%d\n", f.Handle, f.Name, f.Offset)
	}
	return b.String(), nil
}

func (s *session) engineInstances(args []string) (string, error) {
	if err := s.requireEngine(); err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", lserr.New(lserr.InvalidArgument, "usage: engine instances <classHandle>")
	}
	class, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	instances, err := s.eng.GetInstances(class)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, h := range instances {
		fmt.Fprintf(&b, "%#x\n", h)
	}
	return b.String(), nil
}

func (s *session) engineInvoke(args []string) (string, error) {
	if err := s.requireEngine(); err != nil {
		return "", err
	}
	if len(args) < 2 {
		return "", lserr.New(lserr.InvalidArgument, "usage: engine invoke <instanceHandle> <methodHandle>")
	}
	instance, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	method, err := parseHandle(args[1])
	if err != nil {
		return "", err
	}
	v, err := s.eng.Invoke(instance, method, nil)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (s *session) engineRead(args []string) (string, error) {
	if err := s.requireEngine(); err != nil {
		return "", err
	}
	if len(args) < 2 {
		return "", lserr.New(lserr.InvalidArgument, "usage: engine read <instanceHandle> <fieldHandle>")
	}
	instance, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	field, err := parseHandle(args[1])
	if err != nil {
		return "", err
	}
	v, err := s.eng.ReadField(instance, field)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (s *session) engineWrite(args []string) (string, error) {
	if err := s.requireEngine(); err != nil {
		return "", err
	}
	if len(args) < 3 {
		return "", lserr.New(lserr.InvalidArgument, "usage: engine write <instanceHandle> <fieldHandle> <value>")
	}
	instance, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	field, err := parseHandle(args[1])
	if err != nil {
		return "", err
	}
	v, err := parseValue(args[2], valuemodel.ValueType{Kind: valuemodel.I32})
	if err != nil {
		return "", err
	}
	if err := s.eng.WriteField(instance, field, v); err != nil {
		return "", err
	}
	return "ok", nil
}

func parseHandle(s string) (engine.Handle, error) {
	addr, err := parseAddr(s)
	if err != nil {
		return 0, err
	}
	return engine.Handle(addr), nil
}
