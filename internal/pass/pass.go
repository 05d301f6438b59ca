// Package pass implements PassDriver (spec §4.5): runs the fixed
// imports → decl → main pass order over a build unit's file list, threading
// the shared SymbolTable and CGenSink, and emitting the reserved
// definitions slot in between decl and main.
package pass

import (
	"fmt"
	"time"

	"github.com/iderihatakeshi/v/internal/cgen"
	"github.com/iderihatakeshi/v/internal/diagnostic"
	"github.com/iderihatakeshi/v/internal/parser"
	"github.com/iderihatakeshi/v/internal/phase"
	"github.com/iderihatakeshi/v/internal/prefs"
	"github.com/iderihatakeshi/v/internal/symtab"
)

// Timing records how long each stage of a build took, printed under
// -verbose (spec §12 supplemented feature, adapted in shape from the
// teacher's pipeline.go TimingReport).
type Timing struct {
	Discovery time.Duration
	Imports   time.Duration
	Decl      time.Duration
	Headers   time.Duration
	Main      time.Duration
}

func (t Timing) String() string {
	return fmt.Sprintf(
		"discovery=%s imports=%s decl=%s headers=%s main=%s total=%s",
		t.Discovery, t.Imports, t.Decl, t.Headers, t.Main,
		t.Discovery+t.Imports+t.Decl+t.Headers+t.Main,
	)
}

// Driver runs the three passes over a fixed file list.
type Driver struct {
	Prefs   *prefs.Preferences
	Table   *symtab.SymbolTable
	Sink    *cgen.Sink
	Factory parser.Factory

	Timing Timing
}

// New builds a Driver sharing table and sink across every file.
func New(p *prefs.Preferences, table *symtab.SymbolTable, sink *cgen.Sink, factory parser.Factory) *Driver {
	return &Driver{Prefs: p, Table: table, Sink: sink, Factory: factory}
}

// Run executes imports, decl, then main over files in order (spec §4.5:
// "every file finishes pass N before any file begins pass N+1").
func (d *Driver) Run(files []string) error {
	d.Sink.SetPass(phase.Imports)
	start := time.Now()
	for _, f := range files {
		p := d.Factory(f, d.Table, d.Sink, d.Prefs)
		if err := p.Parse(phase.Imports); err != nil {
			return wrapParseError(f, err)
		}
	}
	d.Timing.Imports = time.Since(start)

	d.Sink.SetPass(phase.Decl)
	start = time.Now()
	for _, f := range files {
		p := d.Factory(f, d.Table, d.Sink, d.Prefs)
		if err := p.Parse(phase.Decl); err != nil {
			return wrapParseError(f, err)
		}
	}
	d.Timing.Decl = time.Since(start)

	start = time.Now()
	if err := d.emitHeaders(); err != nil {
		return err
	}
	d.Timing.Headers = time.Since(start)

	d.Sink.SetPass(phase.Main)
	start = time.Now()
	for _, f := range files {
		p := d.Factory(f, d.Table, d.Sink, d.Prefs)
		if err := p.Parse(phase.Main); err != nil {
			return wrapParseError(f, err)
		}
	}
	d.Timing.Main = time.Since(start)

	return nil
}

func wrapParseError(file string, err error) error {
	return &diagnostic.FatalError{Kind: diagnostic.KindParseError, File: file, Message: err.Error()}
}

// emitHeaders reserves and fills the sink's definitions slot with the
// aggregated forward declarations and typedefs the decl pass discovered
// (spec §4.5: "the driver emits platform headers into the reserved
// definitions slot, then runs the main pass").
func (d *Driver) emitHeaders() error {
	d.Sink.AddInclude("#include <stdint.h>")
	d.Sink.AddInclude("#include <stdio.h>")
	d.Sink.AddInclude("#include <stdlib.h>")
	d.Sink.AddInclude("#include <string.h>")
	if d.Prefs.IsLive {
		d.Sink.AddInclude("#include <pthread.h>")
	}

	if err := d.Sink.ReserveDefinitions(); err != nil {
		return err
	}

	var defs []string
	defs = append(defs, "typedef struct { char* str; int len; } v_string;")
	for _, fn := range sortedFunctionKeys(d.Table) {
		descr := d.Table.Functions[fn]
		defs = append(defs, forwardDecl(descr))
	}
	return d.Sink.WriteDefinitions(defs)
}

func forwardDecl(fn *symtab.FunctionDescriptor) string {
	return "void " + fn.Module + "__" + fn.Name + "();"
}

func sortedFunctionKeys(t *symtab.SymbolTable) []string {
	keys := make([]string, 0, len(t.Functions))
	for k := range t.Functions {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
