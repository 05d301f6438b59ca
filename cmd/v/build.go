package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iderihatakeshi/v/internal/assembler"
	"github.com/iderihatakeshi/v/internal/cc"
	"github.com/iderihatakeshi/v/internal/cgen"
	"github.com/iderihatakeshi/v/internal/compiler"
	"github.com/iderihatakeshi/v/internal/diagnostic"
	"github.com/iderihatakeshi/v/internal/emit"
	"github.com/iderihatakeshi/v/internal/hotreload"
	"github.com/iderihatakeshi/v/internal/pass"
	"github.com/iderihatakeshi/v/internal/prefs"
	"github.com/iderihatakeshi/v/internal/symtab"
	"github.com/iderihatakeshi/v/internal/toolchain"
)

// build is the result of compiling a V source tree down to a finished C
// file, ready for CCInvoker.
type build struct {
	files []string
	table *symtab.SymbolTable
	sink  *cgen.Sink
	timing pass.Timing
}

// compile runs BuildAssembler, PassDriver, MainEmitter and (if Prefs.IsLive)
// HotReloadEmitter over p, and saves the result to p.OutNameC. Grounded on
// the top-down data flow described in spec §2: Preferences parameterises
// every stage, BuildAssembler's file list feeds PassDriver, and PassDriver's
// CGenSink is finalized by MainEmitter/HotReloadEmitter before CCInvoker.
func compile(p *prefs.Preferences) (*build, error) {
	factory := compiler.NewParserFactory()

	start := time.Now()
	asm := assembler.New(p, factory)
	files, err := asm.Assemble()
	if err != nil {
		return nil, err
	}
	discovery := time.Since(start)

	table := compiler.NewSymbolTable()
	sink := compiler.NewSink()
	driver := pass.New(p, table, sink, factory)
	driver.Timing.Discovery = discovery
	if err := driver.Run(files); err != nil {
		return nil, err
	}

	if err := emit.New(p, table, sink).Emit(); err != nil {
		return nil, err
	}

	if p.IsLive {
		soPath := soName(p)
		hotreload.New(p, sink).Emit(p.Path, soPath)
	}

	if err := sink.Save(p.OutNameC); err != nil {
		return nil, err
	}

	return &build{files: files, table: table, sink: sink, timing: driver.Timing}, nil
}

// binaryName derives the final artifact name from Prefs.OutName, appending
// the platform-specific suffix (spec §6: ".exe" on Windows, ".dll"/".so"
// for -shared).
func binaryName(p *prefs.Preferences) string {
	name := p.OutName
	if p.IsSO {
		switch p.TargetOS {
		case prefs.TargetWindows, prefs.TargetMSVC:
			return ensureSuffix(name, ".dll")
		default:
			return ensureSuffix(name, ".so")
		}
	}
	if p.TargetOS == prefs.TargetWindows || p.TargetOS == prefs.TargetMSVC {
		return ensureSuffix(name, ".exe")
	}
	return name
}

func soName(p *prefs.Preferences) string {
	base := strings.TrimSuffix(p.OutName, filepath.Ext(p.OutName))
	if p.TargetOS == prefs.TargetWindows || p.TargetOS == prefs.TargetMSVC {
		return ensureSuffix(base, ".dll")
	}
	return ensureSuffix(base, ".so")
}

func ensureSuffix(name, suffix string) string {
	if strings.HasSuffix(name, suffix) {
		return name
	}
	return name + suffix
}

// runBuild implements `v build module <path>`: compile to an object file,
// no executable, no entry point (spec §4.7).
func runBuild(p *prefs.Preferences) int {
	b, err := compile(p)
	if err != nil {
		fmt.Fprintln(os.Stdout, diagnostic.Format(err))
		return 1
	}

	tc, err := locateToolchain(p)
	if err != nil {
		fmt.Fprintln(os.Stdout, diagnostic.Format(err))
		return 1
	}

	outObj := p.ModuleName + ".o"
	if p.OutName != "a.out" {
		outObj = p.OutName
	}
	invoker := cc.New(p, tc)
	if err := invoker.InvokeModule(p.OutNameC, b.files, outObj); err != nil {
		fmt.Fprintln(os.Stdout, diagnostic.Format(err))
		return 1
	}

	if p.IsVerbose {
		fmt.Fprintln(os.Stderr, b.timing.String())
	}
	return 0
}

// runBuildAndMaybeRun implements `v run` and `v test`: compile, link, and
// (except under -shared) execute the result, forwarding its exit code
// (spec §7: "forwarded C-program exit status under run").
func runBuildAndMaybeRun(p *prefs.Preferences) int {
	if p.IsLive {
		return runLive(p)
	}

	b, err := compile(p)
	if err != nil {
		fmt.Fprintln(os.Stdout, diagnostic.Format(err))
		return 1
	}

	tc, err := locateToolchain(p)
	if err != nil {
		fmt.Fprintln(os.Stdout, diagnostic.Format(err))
		return 1
	}

	out := binaryName(p)
	linkPrefs := *p
	linkPrefs.OutName = out
	invoker := cc.New(&linkPrefs, tc)
	var stdlibObj string
	if p.BuildMode == prefs.ModeEmbedStdlib {
		stdlibObj = filepath.Join(p.StdlibRoot, "builtin.o")
	}
	if err := invoker.Invoke(p.OutNameC, b.files, stdlibObj); err != nil {
		fmt.Fprintln(os.Stdout, diagnostic.Format(err))
		return 1
	}

	if p.IsVerbose {
		fmt.Fprintln(os.Stderr, b.timing.String())
	}
	if p.IsSO {
		return 0
	}

	return execBinary(out, p)
}

func locateToolchain(p *prefs.Preferences) (*toolchain.Toolchain, error) {
	return toolchain.DefaultLocate(p.TargetOS == prefs.TargetMSVC)
}

// runFmt, runSymlink, runUp, runInstall are advisory verbs (spec §7:
// "missing optional tools... print a notice and exit 0"); none of them
// participate in the core compile pipeline.
func runFmt(p *prefs.Preferences) int {
	notices := diagnostic.NewCollector()
	notices.Info("fmt: formatting is not bundled with this driver; source left unchanged")
	fmt.Fprint(os.Stderr, notices.FormatAll())
	return 0
}

func runSymlink(p *prefs.Preferences) int {
	notices := diagnostic.NewCollector()
	exe, err := os.Executable()
	if err != nil {
		notices.Warn("symlink: could not resolve own executable path: " + err.Error())
		fmt.Fprint(os.Stderr, notices.FormatAll())
		return 0
	}
	notices.Info("symlink: would link " + exe + " onto PATH")
	fmt.Fprint(os.Stderr, notices.FormatAll())
	return 0
}

func runUp(p *prefs.Preferences) int {
	notices := diagnostic.NewCollector()
	notices.Info("up: self-update is not available in this build")
	fmt.Fprint(os.Stderr, notices.FormatAll())
	return 0
}

func runInstall(p *prefs.Preferences) int {
	notices := diagnostic.NewCollector()
	notices.Info("install: no module manifest found, nothing to install")
	fmt.Fprint(os.Stderr, notices.FormatAll())
	return 0
}
