// Package cc implements CCInvoker (spec §4.10): aggregating cflags, turning
// them into a compiler invocation (free-form for gcc/clang, /link-separated
// for MSVC), and running the child process. Grounded on the teacher's
// cmd/tsgonest/build.go invocation of an external toolchain (there, tsc/esbuild;
// here, the host C compiler), with the MSVC argv-rewriting rules from spec
// §4.10 layered on top.
package cc

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/iderihatakeshi/v/internal/diagnostic"
	"github.com/iderihatakeshi/v/internal/prefs"
	"github.com/iderihatakeshi/v/internal/toolchain"
)

// Flags is the aggregated set of compiler/linker flags gathered from
// Preferences.CFlags and per-source #flag directives.
type Flags struct {
	Libs        []string // -l arguments, in -L/-l order as given
	IncludeDirs []string // -I arguments
	LibDirs     []string // -L arguments
	Raw         []string // anything else, passed through verbatim
}

// ScanFlags reads every source file for lines of the form `#flag <token>`
// and categorizes each token. Order of discovery is preserved; duplicates
// are not deduplicated, matching the teacher's append-only flag collection.
func ScanFlags(files []string) (*Flags, error) {
	f := &Flags{}
	for _, path := range files {
		data, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cc: reading %s: %w", path, err)
		}
		scanner := bufio.NewScanner(data)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "#flag ") {
				continue
			}
			token := strings.TrimSpace(strings.TrimPrefix(line, "#flag "))
			addFlagToken(f, token)
		}
		data.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("cc: scanning %s: %w", path, err)
		}
	}
	return f, nil
}

func addFlagToken(f *Flags, token string) {
	switch {
	case strings.HasPrefix(token, "-l"):
		f.Libs = append(f.Libs, strings.TrimSpace(strings.TrimPrefix(token, "-l")))
	case strings.HasPrefix(token, "-I"):
		f.IncludeDirs = append(f.IncludeDirs, strings.TrimSpace(strings.TrimPrefix(token, "-I")))
	case strings.HasPrefix(token, "-L"):
		f.LibDirs = append(f.LibDirs, strings.TrimSpace(strings.TrimPrefix(token, "-L")))
	default:
		f.Raw = append(f.Raw, token)
	}
}

// msvcDefaultLibs is the fixed default library list CCInvoker links against
// under MSVC (spec §4.10).
var msvcDefaultLibs = []string{
	"kernel32", "user32", "gdi32", "advapi32", "shell32",
	"ole32", "oleaut32", "uuid", "odbc32", "odbccp32",
	"winspool", "comdlg32",
}

// Invoker runs the located toolchain against the emitted C source.
type Invoker struct {
	Prefs *prefs.Preferences
	Chain *toolchain.Toolchain
}

// New returns an Invoker.
func New(p *prefs.Preferences, tc *toolchain.Toolchain) *Invoker {
	return &Invoker{Prefs: p, Chain: tc}
}

// Invoke aggregates flags from Prefs.CFlags and sourceFiles' #flag
// directives, builds the compiler argv, and runs it. cFile is the emitted
// C source; stdlibObj, if non-empty, is an additional object file to link
// (spec: "the stdlib object in default_mode"). On success the temporary C
// source is removed unless Prefs.IsDebug.
func (inv *Invoker) Invoke(cFile string, sourceFiles []string, stdlibObj string) error {
	flags, err := ScanFlags(sourceFiles)
	if err != nil {
		return err
	}
	if inv.Prefs.CFlags != "" {
		for _, tok := range strings.Fields(inv.Prefs.CFlags) {
			addFlagToken(flags, tok)
		}
	}

	if inv.Chain.MSVC != nil {
		return inv.invokeMSVC(cFile, flags, stdlibObj)
	}
	return inv.invokeUnix(cFile, flags, stdlibObj)
}

// InvokeModule compiles cFile to a standalone object file rather than
// linking a binary, for `build module` (spec §4.7: "library build: no
// main"). Under MSVC only `/c <file> /Fo<out>` is passed: #flag include
// dirs, raw flags and the debug flag are applied on the gcc/clang path only.
func (inv *Invoker) InvokeModule(cFile string, sourceFiles []string, outObj string) error {
	flags, err := ScanFlags(sourceFiles)
	if err != nil {
		return err
	}
	if inv.Prefs.CFlags != "" {
		for _, tok := range strings.Fields(inv.Prefs.CFlags) {
			addFlagToken(flags, tok)
		}
	}

	argv := []string{"-c", cFile}
	for _, d := range flags.IncludeDirs {
		argv = append(argv, "-I"+d)
	}
	argv = append(argv, flags.Raw...)
	if inv.Prefs.IsDebug {
		argv = append(argv, "-g")
	}
	argv = append(argv, "-o", outObj)

	cc := inv.Chain.CC
	if inv.Chain.MSVC != nil {
		cc = inv.Chain.MSVC.CL
		argv = []string{"/c", rewriteObjName(cFile), "/Fo" + outObj}
	}
	return inv.run(cc, argv, cFile)
}

func (inv *Invoker) invokeUnix(cFile string, flags *Flags, stdlibObj string) error {
	argv := []string{cFile}
	if stdlibObj != "" {
		argv = append(argv, stdlibObj)
	}
	for _, d := range flags.IncludeDirs {
		argv = append(argv, "-I"+d)
	}
	for _, d := range flags.LibDirs {
		argv = append(argv, "-L"+d)
	}
	for _, l := range flags.Libs {
		argv = append(argv, "-l"+l)
	}
	argv = append(argv, flags.Raw...)
	if inv.Prefs.IsDebug {
		argv = append(argv, "-g")
	}
	if inv.Prefs.IsProd {
		argv = append(argv, "-O2")
	}
	if inv.Prefs.Sanitize {
		argv = append(argv, "-fsanitize=address,undefined")
	}
	if inv.Prefs.IsSO {
		argv = append(argv, "-shared", "-fPIC")
	}
	argv = append(argv, "-o", inv.Prefs.OutName)

	return inv.run(inv.Chain.CC, argv, cFile)
}

func (inv *Invoker) invokeMSVC(cFile string, flags *Flags, stdlibObj string) error {
	for _, l := range flags.Libs {
		if strings.HasSuffix(l, ".dll") {
			return &diagnostic.FatalError{
				Kind:    diagnostic.KindUnsupportedLinkDirective,
				Message: fmt.Sprintf("-l %s is not supported under MSVC", l),
			}
		}
	}

	msvc := inv.Chain.MSVC
	var cl []string
	cl = append(cl, rewriteObjName(cFile))
	cl = append(cl, "/Fo"+outObjDir(inv.Prefs.OutName))
	if inv.Prefs.IsDebug {
		cl = append(cl, "/MDd", "/Z7", "/DEBUG:FULL")
	} else {
		cl = append(cl, "/MD", "/DEBUG:NONE")
	}
	if inv.Prefs.IsSO {
		cl = append(cl, "/LD")
	}
	for _, d := range msvc.IncludeDirs {
		cl = append(cl, "-I", quote(d))
	}
	for _, d := range flags.IncludeDirs {
		cl = append(cl, "-I", quote(d))
	}

	link := []string{"/OUT:" + inv.Prefs.OutName}
	for _, d := range msvc.LibDirs {
		link = append(link, "/LIBPATH:"+quote(d))
	}
	for _, d := range flags.LibDirs {
		link = append(link, "/LIBPATH:"+quote(d))
		link = append(link, "/LIBPATH:"+quote(d+`\msvc\`))
	}
	if stdlibObj != "" {
		link = append(link, rewriteObjName(stdlibObj))
	}
	for _, l := range flags.Libs {
		link = append(link, l+".lib")
	}
	libs := append([]string{}, msvcDefaultLibs...)
	sort.Strings(libs)
	for _, l := range libs {
		link = append(link, l+".lib")
	}

	argv := append(cl, "/link")
	argv = append(argv, link...)

	return inv.run(msvc.CL, argv, cFile)
}

// rewriteObjName applies the spec §4.10 MSVC filename rewrite: .o -> .obj.
func rewriteObjName(name string) string {
	if strings.HasSuffix(name, ".o") {
		return strings.TrimSuffix(name, ".o") + ".obj"
	}
	return name
}

func outObjDir(outName string) string {
	return outName + ".obj"
}

func quote(s string) string {
	return `"` + s + `"`
}

func (inv *Invoker) run(exe string, argv []string, cFile string) error {
	if inv.Prefs.ShowCCmd {
		fmt.Fprintln(os.Stderr, exe, strings.Join(argv, " "))
	}

	cmd := exec.Command(exe, argv...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = os.Stdout

	err := cmd.Run()
	if err != nil {
		return &diagnostic.FatalError{
			Kind:    diagnostic.KindCompileFailure,
			Message: "C compilation failed",
			Output:  stderr.String(),
		}
	}

	if !inv.Prefs.IsDebug {
		os.Remove(cFile)
	}
	return nil
}
