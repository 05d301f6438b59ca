// Package compiler is the thin adapter spec §1 calls for around the
// out-of-scope Parser/CGen capability: it only names the constructors the
// rest of the driver needs (a fresh SymbolTable, a fresh CGenSink, a Parser
// Factory), the same shape the teacher used to wrap its own external
// compiler engine behind CreateDefaultFS/CreateDefaultHost-style entry
// points.
package compiler

import (
	"github.com/iderihatakeshi/v/internal/cgen"
	"github.com/iderihatakeshi/v/internal/parser"
	"github.com/iderihatakeshi/v/internal/symtab"
)

// NewSymbolTable returns the shared table every parser mutates through the
// driver (spec §3).
func NewSymbolTable() *symtab.SymbolTable { return symtab.New() }

// NewSink returns the shared CGenSink (spec §4.6).
func NewSink() *cgen.Sink { return cgen.New() }

// NewParserFactory returns the default Parser factory.
func NewParserFactory() parser.Factory { return parser.NewFactory() }
