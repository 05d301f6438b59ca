// Package resolve maps a dotted module name to the filesystem directory
// holding its source files (spec §4.1: ModulePathResolver).
//
// The candidate-chain, first-match-wins resolution policy is adapted from
// the fallback-path matching this repo's teacher used for tsconfig path
// aliases: try candidates in a fixed order and take the first that actually
// contains something to resolve to, rather than guessing from the pattern
// alone.
package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrModuleNotFound is returned (possibly wrapped) when no candidate
// directory for a module contains at least one source file.
var ErrModuleNotFound = errors.New("module not found")

// ModuleNotFoundError names the module that could not be resolved.
type ModuleNotFoundError struct {
	Module string
}

func (e *ModuleNotFoundError) Error() string {
	return "module not found: " + e.Module
}

func (e *ModuleNotFoundError) Unwrap() error { return ErrModuleNotFound }

// hasSourceFile reports whether dir exists and contains at least one
// ".v"/".vh" file, without applying platform/test filtering — resolution
// only needs to know the directory is not empty of source.
func hasSourceFile(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".v", ".vh":
			return true
		}
	}
	return false
}

// Resolver resolves module names against the ordered candidate chain from
// spec §4.1: (a) relative to the current compilation unit's directory,
// (b) the stdlib root, (c) a user module cache.
type Resolver struct {
	StdlibRoot string
	UserCache  string // e.g. ~/.vmodules
}

// New builds a Resolver. userCache may be empty, in which case that
// candidate is skipped.
func New(stdlibRoot, userCache string) *Resolver {
	return &Resolver{StdlibRoot: stdlibRoot, UserCache: userCache}
}

// modulePath turns a dotted module name ("net.http") into a relative path
// ("net/http").
func modulePath(module string) string {
	return filepath.Join(strings.Split(module, ".")...)
}

// Resolve returns the absolute directory for module, trying candidates in
// order and returning the first that contains a source file. fromDir is the
// directory of the file doing the importing.
func (r *Resolver) Resolve(module, fromDir string) (string, error) {
	rel := modulePath(module)
	candidates := []string{
		filepath.Join(fromDir, rel),
		filepath.Join(r.StdlibRoot, rel),
	}
	if r.UserCache != "" {
		candidates = append(candidates, filepath.Join(r.UserCache, rel))
	}
	for _, c := range candidates {
		if hasSourceFile(c) {
			abs, err := filepath.Abs(c)
			if err != nil {
				return "", err
			}
			return abs, nil
		}
	}
	return "", &ModuleNotFoundError{Module: module}
}

// DefaultUserCache returns "~/.vmodules", or "" if the home directory cannot
// be determined.
func DefaultUserCache() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vmodules")
}
