// Command v is the self-hosting compiler driver: it turns V source into
// portable C and invokes a host C toolchain to produce a binary.
package main

import (
	"fmt"
	"os"

	"github.com/iderihatakeshi/v/internal/diagnostic"
	"github.com/iderihatakeshi/v/internal/prefs"
)

const version = "0.0.1-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Getenv))
}

func run(args []string, getenv func(string) string) int {
	p, err := prefs.Parse(args, getenv)
	if err != nil {
		fmt.Fprintln(os.Stdout, diagnostic.Format(err))
		return 1
	}

	switch p.Verb {
	case prefs.VerbVersion:
		fmt.Println("V", version)
		return 0
	case prefs.VerbHelp:
		printUsage()
		return 0
	case prefs.VerbFmt:
		return runFmt(p)
	case prefs.VerbSymlink:
		return runSymlink(p)
	case prefs.VerbUp:
		return runUp(p)
	case prefs.VerbInstall:
		return runInstall(p)
	case prefs.VerbBuildModule:
		return runBuild(p)
	case prefs.VerbTest:
		return runBuildAndMaybeRun(p)
	default: // VerbRun
		return runBuildAndMaybeRun(p)
	}
}

func printUsage() {
	fmt.Println("v - compiler driver for the V language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  v run <path>           Compile and run")
	fmt.Println("  v test <path>          Compile and run tests")
	fmt.Println("  v build module <path>  Compile a module to an object file, no binary")
	fmt.Println("  v install              Install stdlib/tooling (stub)")
	fmt.Println("  v fmt <path>           Format source (stub)")
	fmt.Println("  v symlink              Symlink the v binary onto PATH (stub)")
	fmt.Println("  v up                   Self-update (stub)")
	fmt.Println("  v version              Print version and exit")
	fmt.Println("  v help                 Print this message")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -o <name>      output binary name")
	fmt.Println("  -os <target>   cross-compilation target")
	fmt.Println("  -prod          optimized build")
	fmt.Println("  -debug, -g     keep the generated C, enable debug info")
	fmt.Println("  -live          hot-reload build")
	fmt.Println("  -shared        build a shared library")
	fmt.Println("  -prof          profiling build (stub)")
	fmt.Println("  -obf           obfuscate identifiers (stub)")
	fmt.Println("  -verbose       print per-stage timing")
	fmt.Println("  -show_c_cmd    print the C compiler invocation")
	fmt.Println("  -autofree      enable autofree mode (stub)")
	fmt.Println("  -compress      compress the output binary (stub)")
	fmt.Println("  -sanitize      build with ASan/UBSan")
	fmt.Println("  -cflags <str>  extra flags forwarded to the C compiler")
	fmt.Println("  -nofmt         skip auto-formatting (stub)")
	fmt.Println("  -repl          start an interactive REPL (stub)")
}
