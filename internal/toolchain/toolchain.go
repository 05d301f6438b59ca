// Package toolchain implements ToolchainLocator (spec §4.9): finding a C
// compiler to hand the emitted source to. Unix-like hosts probe $CC/cc/gcc/
// clang on PATH; Windows hosts additionally resolve an MSVC installation via
// the registry and vswhere.exe. Grounded on the teacher's exec.LookPath-based
// tool discovery (cmd/tsgonest/build.go), extended with the registry probe
// from golang.org/x/sys/windows/registry for the Windows SDK lookup.
package toolchain

import (
	"os"
	"os/exec"

	"github.com/iderihatakeshi/v/internal/diagnostic"
)

// MSVC describes a located Microsoft Visual C++ toolchain.
type MSVC struct {
	// CL is the path to cl.exe (bin\Hostx64\x64\cl.exe under the VC tools root).
	CL string
	// IncludeDirs are the include search paths: VC tools include, plus the
	// Windows SDK's um/ucrt/shared includes.
	IncludeDirs []string
	// LibDirs are the x64 library search paths: VC tools lib, plus the
	// Windows SDK's um/ucrt libs.
	LibDirs []string
}

// Toolchain is the located C compiler, ready for CCInvoker to build an argv
// around. Exactly one of CC or MSVC is populated.
type Toolchain struct {
	// CC is the gcc/clang-compatible compiler executable path (Unix-like hosts).
	CC string
	// MSVC is populated instead of CC only when MSVC is requested (-os
	// msvc); a host with no $CC/cc/gcc/clang does not fall back to it.
	MSVC *MSVC
}

// Locate finds a C toolchain. getenv and lookPath are injected for testing;
// production callers pass os.Getenv and exec.LookPath.
func Locate(useMSVC bool, getenv func(string) string, lookPath func(string) (string, error)) (*Toolchain, error) {
	if useMSVC {
		msvc, err := locateMSVC(getenv)
		if err != nil {
			return nil, err
		}
		return &Toolchain{MSVC: msvc}, nil
	}
	return locateUnix(getenv, lookPath)
}

func locateUnix(getenv func(string) string, lookPath func(string) (string, error)) (*Toolchain, error) {
	candidates := []string{}
	if cc := getenv("CC"); cc != "" {
		candidates = append(candidates, cc)
	}
	candidates = append(candidates, "cc", "gcc", "clang")

	for _, c := range candidates {
		if path, err := lookPath(c); err == nil {
			return &Toolchain{CC: path}, nil
		}
	}
	return nil, &diagnostic.FatalError{
		Kind:    diagnostic.KindToolchainNotFound,
		Message: "no C compiler found ($CC, cc, gcc, clang)",
	}
}

// DefaultLocate is the production entry point.
func DefaultLocate(useMSVC bool) (*Toolchain, error) {
	return Locate(useMSVC, os.Getenv, exec.LookPath)
}
