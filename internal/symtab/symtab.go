// Package symtab holds the shared, driver-owned mutable state every parser
// reads and writes across passes (spec §3: SymbolTable).
//
// Per spec §9's design note, this is modelled as an explicit context value
// owned by the driver and threaded into every parser — never an ambient
// package-level singleton.
package symtab

import "github.com/iderihatakeshi/v/internal/importgraph"

// ModuleDescriptor records a module discovered during the imports pass.
type ModuleDescriptor struct {
	Name  string
	Files []string
}

// FunctionDescriptor records a top-level function discovered during the
// decl pass. HasBody is filled in during the main pass once its body has
// been emitted (spec §4.5: "may fill in deferred symbol fields").
type FunctionDescriptor struct {
	Name     string
	Module   string
	File     string
	IsTest   bool
	HasMain  bool // true for the function literally named "main"
	HasBody  bool
	IsLive   bool // flagged for hot-reload symbol rebinding
}

// TypeDescriptor records a top-level type/struct discovered during the decl
// pass.
type TypeDescriptor struct {
	Name   string
	Module string
	File   string
}

// SymbolTable is the single shared table threaded through every parser by
// the driver (spec §3, §9). It is not safe for concurrent use: the driver
// runs single-threaded cooperative per spec §5.
type SymbolTable struct {
	Modules     map[string]*ModuleDescriptor
	Imports     map[string]bool
	Functions   map[string]*FunctionDescriptor
	Types       map[string]*TypeDescriptor
	ObfIDs      map[string]string
	FileImports []importgraph.FileImport

	obfCounter int
}

// New returns an empty SymbolTable ready for the imports pass.
func New() *SymbolTable {
	return &SymbolTable{
		Modules:   make(map[string]*ModuleDescriptor),
		Imports:   make(map[string]bool),
		Functions: make(map[string]*FunctionDescriptor),
		Types:     make(map[string]*TypeDescriptor),
		ObfIDs:    make(map[string]string),
	}
}

// AddFileImport records one file's import-pass result and folds its
// imports into the process-wide Imports set.
func (t *SymbolTable) AddFileImport(fi importgraph.FileImport) {
	t.FileImports = append(t.FileImports, fi)
	if _, ok := t.Modules[fi.ModuleName]; !ok {
		t.Modules[fi.ModuleName] = &ModuleDescriptor{Name: fi.ModuleName}
	}
	t.Modules[fi.ModuleName].Files = append(t.Modules[fi.ModuleName].Files, fi.FilePath)
	for _, imp := range fi.Imports {
		t.Imports[imp] = true
	}
}

// AddFunction inserts or, on a repeated decl pass over the same file,
// idempotently replaces a function descriptor (spec §3: "results must be
// idempotent with respect to symbol-table contents on repeated decl runs").
func (t *SymbolTable) AddFunction(fn *FunctionDescriptor) {
	t.Functions[fn.Module+"."+fn.Name] = fn
}

// AddType inserts or replaces a type descriptor, same idempotency rule as
// AddFunction.
func (t *SymbolTable) AddType(typ *TypeDescriptor) {
	t.Types[typ.Module+"."+typ.Name] = typ
}

// ObfuscatedName returns a short, stable obfuscated identifier for name,
// minting one on first use (spec §3: obf_id → renamed_name).
func (t *SymbolTable) ObfuscatedName(name string) string {
	if id, ok := t.ObfIDs[name]; ok {
		return id
	}
	t.obfCounter++
	id := obfuscatedID(t.obfCounter)
	t.ObfIDs[name] = id
	return id
}

func obfuscatedID(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "_" + string(alphabet[0])
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{alphabet[n%len(alphabet)]}, buf...)
		n /= len(alphabet)
	}
	return "_" + string(buf)
}

// TestFunctions returns every function descriptor whose name begins with
// "test_", in a stable order (sorted by module then name), for MainEmitter's
// test-build mode (spec §4.7).
func (t *SymbolTable) TestFunctions() []*FunctionDescriptor {
	var out []*FunctionDescriptor
	for _, fn := range t.Functions {
		if fn.IsTest {
			out = append(out, fn)
		}
	}
	sortFunctions(out)
	return out
}

// UserMain returns the function descriptor for a user-declared "main",
// if any.
func (t *SymbolTable) UserMain() *FunctionDescriptor {
	for _, fn := range t.Functions {
		if fn.HasMain {
			return fn
		}
	}
	return nil
}

func sortFunctions(fns []*FunctionDescriptor) {
	for i := 1; i < len(fns); i++ {
		for j := i; j > 0; j-- {
			a, b := fns[j-1], fns[j]
			if a.Module > b.Module || (a.Module == b.Module && a.Name > b.Name) {
				fns[j-1], fns[j] = fns[j], fns[j-1]
			} else {
				break
			}
		}
	}
}
