// Package cgen implements CGenSink (spec §4.6): an append-only line buffer
// with side buffers and a single replace-once "reserved definitions" slot,
// finalized to a single UTF-8 C source file.
//
// The reserved-slot mechanic is grounded on the teacher's WriteFile
// interception pattern in its rewrite package — a single callback that
// patches content as it is written — generalized here into an explicit
// field rather than an inline sentinel string, since Go gives us a cleaner
// way to express "write this slot exactly once" than scanning for a marker
// byte sequence.
package cgen

import (
	"fmt"
	"os"
	"strings"

	"github.com/iderihatakeshi/v/internal/phase"
)

// Sink is the single CGenSink shared by every parser in a build, passed in
// explicitly by the driver (spec §9: "must not be ambient").
type Sink struct {
	pass phase.Pass

	includes   []string
	typedefs   []string
	fns        []string // forward signatures
	consts     []string
	constsInit []string
	threadArgs []string
	soFns      []string // hot-reload: symbols to dynamically resolve

	reserved     bool
	definitions  []string
	definitionsW bool

	body []string // per-file main-pass output, then entry point, then hot-reload shim

	saved bool
}

// New returns an empty Sink, positioned at the imports pass.
func New() *Sink {
	return &Sink{pass: phase.Imports}
}

// SetPass advances the sink's global pass field (spec §4.5: "a state
// machine over the global `pass` field of CGenSink").
func (s *Sink) SetPass(p phase.Pass) { s.pass = p }

// Pass returns the sink's current pass.
func (s *Sink) Pass() phase.Pass { return s.pass }

func dedupAppend(list []string, line string) []string {
	for _, existing := range list {
		if existing == line {
			return list
		}
	}
	return append(list, line)
}

func (s *Sink) AddInclude(line string)   { s.includes = dedupAppend(s.includes, line) }
func (s *Sink) AddTypedef(line string)   { s.typedefs = dedupAppend(s.typedefs, line) }
func (s *Sink) AddForwardDecl(sig string) { s.fns = dedupAppend(s.fns, sig) }
func (s *Sink) AddConst(line string)      { s.consts = append(s.consts, line) }
func (s *Sink) AddConstInit(line string)  { s.constsInit = append(s.constsInit, line) }
func (s *Sink) AddThreadArg(line string)  { s.threadArgs = append(s.threadArgs, line) }

// AddSoFn appends symbol to the hot-reload side channel (spec §9: "a side
// channel on the sink").
func (s *Sink) AddSoFn(symbol string) { s.soFns = dedupAppend(s.soFns, symbol) }

// SoFns returns the accumulated hot-reload symbol list.
func (s *Sink) SoFns() []string { return s.soFns }

// WriteLine appends one line of body output — per-file main-pass content,
// followed later by the entry point and the hot-reload shim.
func (s *Sink) WriteLine(line string) { s.body = append(s.body, line) }

// WriteLinef is a Printf-style convenience wrapper around WriteLine.
func (s *Sink) WriteLinef(format string, args ...interface{}) {
	s.WriteLine(fmt.Sprintf(format, args...))
}

// ErrAlreadyReserved is returned by ReserveDefinitions if called twice.
var ErrAlreadyReserved = fmt.Errorf("cgen: definitions slot already reserved")

// ErrNotReserved is returned by WriteDefinitions if called before
// ReserveDefinitions.
var ErrNotReserved = fmt.Errorf("cgen: definitions slot not reserved")

// ErrAlreadyWritten is returned by WriteDefinitions if called twice.
var ErrAlreadyWritten = fmt.Errorf("cgen: definitions slot already written")

// ReserveDefinitions marks the point in the output where the driver will
// later insert aggregated definitions (spec §4.6: "reserved marker line").
// It may be called exactly once.
func (s *Sink) ReserveDefinitions() error {
	if s.reserved {
		return ErrAlreadyReserved
	}
	s.reserved = true
	return nil
}

// WriteDefinitions fills the reserved slot. It may be called exactly once,
// and only after ReserveDefinitions.
func (s *Sink) WriteDefinitions(lines []string) error {
	if !s.reserved {
		return ErrNotReserved
	}
	if s.definitionsW {
		return ErrAlreadyWritten
	}
	s.definitions = append([]string{}, lines...)
	s.definitionsW = true
	return nil
}

// Render assembles the final C source in a fixed order: includes, typedefs
// and forward signatures, then the reserved definitions slot, then consts,
// const initialisers and thread args, then the accumulated body.
func (s *Sink) Render() (string, error) {
	if s.reserved && !s.definitionsW {
		return "", fmt.Errorf("cgen: definitions slot reserved but never written")
	}
	var out strings.Builder
	writeBlock(&out, s.includes)
	writeBlock(&out, s.typedefs)
	writeBlock(&out, s.fns)
	writeBlock(&out, s.definitions)
	writeBlock(&out, s.consts)
	writeBlock(&out, s.constsInit)
	writeBlock(&out, s.threadArgs)
	writeBlock(&out, s.body)
	return out.String(), nil
}

func writeBlock(out *strings.Builder, lines []string) {
	for _, l := range lines {
		out.WriteString(l)
		out.WriteByte('\n')
	}
}

// Save writes the rendered output to path. It is idempotent: the first
// call writes the file; subsequent calls are no-ops (spec §4.6: "Save is
// idempotent; callers may invoke it once per build").
func (s *Sink) Save(path string) error {
	if s.saved {
		return nil
	}
	content, err := s.Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}
	s.saved = true
	return nil
}
