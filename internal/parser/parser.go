// Package parser defines the Parser capability spec §1 places out of scope
// ("the lexer, expression/type parser, and type checker internals...
// assumed as a Parser capability") and provides a minimal reference
// implementation sufficient to drive and test the rest of the pipeline.
//
// This is deliberately not a full front end for the language: statement and
// expression translation ("code-gen string concatenation for individual
// statements — a CGen sink") is named in spec §1 as its own separate
// out-of-scope collaborator. What is implemented here is the surface the
// driver and tests actually exercise — module/import statements, top-level
// fn/struct/type declarations, and a small recognised subset of statement
// forms (println, assert, return, const, plain calls) — translated into C
// using the conventions MainEmitter and the rest of the driver assume
// (module__name symbol naming, _STR for string literals).
package parser

import (
	"bufio"
	"fmt"
	"os"

	"github.com/iderihatakeshi/v/internal/cgen"
	"github.com/iderihatakeshi/v/internal/phase"
	"github.com/iderihatakeshi/v/internal/prefs"
	"github.com/iderihatakeshi/v/internal/symtab"
)

// Diagnostic is the ParseError of spec §7: a single fatal diagnostic
// carrying a file and line.
type Diagnostic struct {
	File    string
	Line    int
	Message string
}

func (d *Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.File, d.Message)
}

// Parser is the per-(file,pass) capability the driver constructs and
// discards (spec §3: "Parsers are created per file per pass and discarded").
type Parser interface {
	Parse(pass phase.Pass) error
}

// Factory constructs a fresh Parser for one file, given the shared table,
// sink, and preferences (spec §9: explicit context values, never ambient).
type Factory func(filePath string, table *symtab.SymbolTable, sink *cgen.Sink, p *prefs.Preferences) Parser

// NewFactory returns the reference scanner-based Factory.
func NewFactory() Factory {
	return func(filePath string, table *symtab.SymbolTable, sink *cgen.Sink, p *prefs.Preferences) Parser {
		return &scanner{filePath: filePath, table: table, sink: sink, prefs: p}
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
