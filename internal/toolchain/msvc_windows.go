//go:build windows

package toolchain

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/iderihatakeshi/v/internal/diagnostic"
)

// locateMSVC performs the two required lookups from spec §4.9: the Windows
// SDK (via the registry) and the VC tools (via vswhere.exe). Both must
// succeed.
func locateMSVC(getenv func(string) string) (*MSVC, error) {
	sdkRoot, sdkVersion, err := windowsSDK()
	if err != nil {
		return nil, err
	}
	vcRoot, vcVersion, err := vcTools(getenv)
	if err != nil {
		return nil, err
	}

	vcBin := filepath.Join(vcRoot, "VC", "Tools", "MSVC", vcVersion, "bin", "Hostx64", "x64")
	vcLib := filepath.Join(vcRoot, "VC", "Tools", "MSVC", vcVersion, "lib", "x64")
	vcInclude := filepath.Join(vcRoot, "VC", "Tools", "MSVC", vcVersion, "include")

	sdkLib := filepath.Join(sdkRoot, "Lib", sdkVersion)
	sdkInclude := filepath.Join(sdkRoot, "Include", sdkVersion)

	return &MSVC{
		CL: filepath.Join(vcBin, "cl.exe"),
		IncludeDirs: []string{
			vcInclude,
			filepath.Join(sdkInclude, "um"),
			filepath.Join(sdkInclude, "ucrt"),
			filepath.Join(sdkInclude, "shared"),
		},
		LibDirs: []string{
			vcLib,
			filepath.Join(sdkLib, "um", "x64"),
			filepath.Join(sdkLib, "ucrt", "x64"),
		},
	}, nil
}

// windowsSDK reads HKLM\SOFTWARE\Microsoft\Windows Kits\Installed Roots for
// KitsRoot10 (falling back to KitsRoot81), then picks the numerically
// largest version subdirectory under Lib\.
func windowsSDK() (root, version string, err error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows Kits\Installed Roots`, registry.QUERY_VALUE)
	if err != nil {
		return "", "", notFound("opening Windows Kits registry key: %v", err)
	}
	defer k.Close()

	root, _, err = k.GetStringValue("KitsRoot10")
	if err != nil || root == "" {
		root, _, err = k.GetStringValue("KitsRoot81")
	}
	if err != nil || root == "" {
		return "", "", notFound("no KitsRoot10 or KitsRoot81 value found")
	}

	libDir := filepath.Join(root, "Lib")
	entries, err := os.ReadDir(libDir)
	if err != nil {
		return "", "", notFound("reading %s: %v", libDir, err)
	}

	best := -1
	var bestName string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, e.Name())
		if digits == "" {
			continue
		}
		n, convErr := strconv.Atoi(digits)
		if convErr != nil {
			continue
		}
		if n > best {
			best = n
			bestName = e.Name()
		}
	}
	if bestName == "" {
		return "", "", notFound("no versioned subdirectory under %s", libDir)
	}
	return root, bestName, nil
}

// vcTools runs vswhere.exe to find the latest VC.Tools.x86.x64 installation,
// then reads its default tools version file.
func vcTools(getenv func(string) string) (installPath, version string, err error) {
	pf86 := getenv("ProgramFiles(x86)")
	if pf86 == "" {
		return "", "", notFound("%%ProgramFiles(x86)%% is not set")
	}
	vswhere := filepath.Join(pf86, "Microsoft Visual Studio", "Installer", "vswhere.exe")
	out, err := exec.Command(vswhere,
		"-latest",
		"-requires", "Microsoft.VisualStudio.Component.VC.Tools.x86.x64",
		"-property", "installationPath",
	).Output()
	if err != nil {
		return "", "", notFound("running vswhere.exe: %v", err)
	}
	installPath = strings.TrimSpace(string(out))
	if installPath == "" {
		return "", "", notFound("vswhere.exe found no VC.Tools.x86.x64 installation")
	}

	versionFile := filepath.Join(installPath, "VC", "Auxiliary", "Build", "Microsoft.VCToolsVersion.default.txt")
	data, err := os.ReadFile(versionFile)
	if err != nil {
		return "", "", notFound("reading %s: %v", versionFile, err)
	}
	version = strings.TrimSpace(string(data))
	if version == "" {
		return "", "", notFound("%s is empty", versionFile)
	}
	return installPath, version, nil
}

func notFound(format string, args ...any) error {
	return &diagnostic.FatalError{
		Kind:    diagnostic.KindToolchainNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}
