// Package filefilter enumerates the source files of a directory, applying
// the test/platform/extension exclusions described in spec §4.2.
package filefilter

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iderihatakeshi/v/internal/prefs"
)

// sourceExts are the recognised input extensions (spec §6: ".v" or ".vh").
var sourceExts = map[string]bool{
	".v":  true,
	".vh": true,
}

// Options controls which files List keeps.
type Options struct {
	TargetOS     prefs.Target
	IncludeTests bool
}

// List enumerates dir's immediate entries (non-recursive — modules are a
// single directory each per spec §3 "Module") and returns the source files
// that survive filtering, sorted lexicographically by filename so that
// builds are deterministic (spec §4.2, §8 property 1).
func List(dir string, opts Options) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		if !IsSourceFile(name) {
			continue
		}
		if IsTestFile(name) && !opts.IncludeTests {
			continue
		}
		if !IsPlatformActive(name, opts.TargetOS) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// IsSourceFile reports whether name has a recognised source extension.
func IsSourceFile(name string) bool {
	return sourceExts[filepath.Ext(name)]
}

// IsTestFile reports whether name carries the "_test" suffix convention.
func IsTestFile(name string) bool {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasSuffix(base, "_test")
}

// platformSuffixes maps a filename suffix to the predicate of targets under
// which a file bearing that suffix is active.
var platformSuffixes = []struct {
	suffix string
	active func(prefs.Target) bool
}{
	{"_win", func(t prefs.Target) bool { return t == prefs.TargetWindows || t == prefs.TargetMSVC }},
	{"_lin", func(t prefs.Target) bool { return t == prefs.TargetLinux }},
	{"_mac", func(t prefs.Target) bool { return t == prefs.TargetMac }},
	{"_nix", func(t prefs.Target) bool { return t != prefs.TargetWindows && t != prefs.TargetMSVC }},
	{"_js", func(t prefs.Target) bool { return t == prefs.TargetJS }},
	{"_c", func(t prefs.Target) bool { return t != prefs.TargetJS }},
}

// IsPlatformActive reports whether a file's platform suffix (if any) matches
// the active target, per spec §4.2's suffix table.
func IsPlatformActive(name string, target prefs.Target) bool {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.TrimSuffix(base, "_test")
	for _, ps := range platformSuffixes {
		if strings.HasSuffix(base, ps.suffix) {
			return ps.active(target)
		}
	}
	return true
}
