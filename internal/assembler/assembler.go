// Package assembler implements BuildAssembler (spec §4.4): it expands a
// user input (file or directory) into the ordered, deduplicated list of
// source files that make up one build unit.
//
// Grounded on the teacher's runBuild staging in cmd/tsgonest/build.go
// (resolve config → create program → gather diagnostics), generalized here
// into seed-builtin → discover-user-files → imports-pass-to-fixpoint →
// topo-order → concatenate → dedup.
package assembler

import (
	"os"
	"path/filepath"

	"github.com/iderihatakeshi/v/internal/diagnostic"
	"github.com/iderihatakeshi/v/internal/filefilter"
	"github.com/iderihatakeshi/v/internal/importgraph"
	"github.com/iderihatakeshi/v/internal/parser"
	"github.com/iderihatakeshi/v/internal/phase"
	"github.com/iderihatakeshi/v/internal/prefs"
	"github.com/iderihatakeshi/v/internal/resolve"
	"github.com/iderihatakeshi/v/internal/symtab"
)

// Assembler drives build-unit discovery.
type Assembler struct {
	Prefs    *prefs.Preferences
	Resolver *resolve.Resolver
	Factory  parser.Factory
}

// New builds an Assembler using the default stdlib-root/user-cache
// resolution chain from p.
func New(p *prefs.Preferences, factory parser.Factory) *Assembler {
	return &Assembler{
		Prefs:    p,
		Resolver: resolve.New(p.StdlibRoot, resolve.DefaultUserCache()),
		Factory:  factory,
	}
}

func builtinDir(stdlibRoot string) string {
	return filepath.Join(stdlibRoot, "builtin")
}

// Assemble returns the ordered file list for Prefs.Path, scanning imports
// with a scratch SymbolTable of its own (the imports pass is idempotent, so
// re-running it later against the driver's authoritative table is safe and
// is exactly what PassDriver does).
func (a *Assembler) Assemble() ([]string, error) {
	scratch := symtab.New()

	var files []string
	fopts := filefilter.Options{TargetOS: a.Prefs.TargetOS, IncludeTests: a.Prefs.IsTest}

	if builtin, err := filefilter.List(builtinDir(a.Prefs.StdlibRoot), fopts); err == nil {
		files = append(files, builtin...)
	}
	builtinCount := len(files)

	userFiles, err := a.discoverUserFiles(fopts)
	if err != nil {
		return nil, err
	}
	if len(userFiles) == 0 {
		return nil, &diagnostic.FatalError{Kind: diagnostic.KindNoInputFiles, Message: "no input files"}
	}

	allFiles := append(append([]string{}, files...), userFiles...)
	scanned := make(map[string]bool)
	resolvedModules := make(map[string]bool)
	resolvedModules["main"] = true

	for {
		progress := false
		for _, f := range allFiles {
			if scanned[f] {
				continue
			}
			scanned[f] = true
			progress = true
			p := a.Factory(f, scratch, nil, a.Prefs)
			if err := p.Parse(phase.Imports); err != nil {
				return nil, wrapParseError(f, err)
			}
		}
		// Resolve any newly-seen imported module into its file set.
		grew := false
		for mod := range scratch.Imports {
			if resolvedModules[mod] {
				continue
			}
			resolvedModules[mod] = true
			dir, err := a.Resolver.Resolve(mod, filepath.Dir(userLead(userFiles)))
			if err != nil {
				return nil, &diagnostic.FatalError{Kind: diagnostic.KindModuleNotFound, Message: err.Error()}
			}
			modFiles, err := filefilter.List(dir, fopts)
			if err != nil {
				return nil, &diagnostic.FatalError{Kind: diagnostic.KindModuleNotFound, Message: err.Error()}
			}
			allFiles = append(allFiles, modFiles...)
			grew = true
		}
		if !progress && !grew {
			break
		}
	}

	graph := importgraph.Build(scratch.FileImports)
	order, err := graph.TopoOrder()
	if err != nil {
		return nil, &diagnostic.FatalError{Kind: diagnostic.KindImportCycle, Message: err.Error()}
	}

	return concatenate(files[:builtinCount], order, scratch, userFiles, a.Prefs.ModuleName), nil
}

func userLead(userFiles []string) string {
	if len(userFiles) == 0 {
		return "."
	}
	return userFiles[0]
}

func wrapParseError(file string, err error) error {
	return &diagnostic.FatalError{Kind: diagnostic.KindParseError, File: file, Message: err.Error()}
}

func (a *Assembler) discoverUserFiles(fopts filefilter.Options) ([]string, error) {
	path := a.Prefs.Path
	info, err := os.Stat(path)
	if err != nil {
		return nil, &diagnostic.FatalError{Kind: diagnostic.KindPathNotFound, Message: path + ": " + err.Error()}
	}
	if !info.IsDir() {
		if !filefilter.IsSourceFile(path) {
			return nil, &diagnostic.FatalError{Kind: diagnostic.KindNoInputFiles, Message: path + " is not a source file"}
		}
		return []string{path}, nil
	}
	return filefilter.List(path, fopts)
}

// concatenate orders the final build list: builtin first; then each
// imported module's files in topological order (skipping the module
// currently being built, if any); finally user files — deduplicated,
// preserving first-seen position (spec §4.4 steps 6–7).
func concatenate(builtin []string, order []string, table *symtab.SymbolTable, userFiles []string, buildingModule string) []string {
	seen := make(map[string]bool, len(builtin)+len(userFiles))
	var out []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range builtin {
		add(f)
	}
	for _, mod := range order {
		if mod == buildingModule {
			continue
		}
		if md, ok := table.Modules[mod]; ok {
			for _, f := range md.Files {
				add(f)
			}
		}
	}
	for _, f := range userFiles {
		add(f)
	}
	return out
}
