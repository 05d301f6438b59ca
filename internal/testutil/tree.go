// Package testutil provides shared test helpers for building trees of V
// source fixtures on disk. The teacher built fixture programs against an
// in-memory vfs.FS overlay; this driver's packages (resolve, filefilter,
// assembler, parser) all operate on real paths via os/filepath directly, so
// the overlay is replaced with a temp-directory tree builder instead of a
// fake filesystem.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTree materializes files under a fresh temp directory, where each key
// is a slash-separated path relative to the tree root and each value is the
// file's contents. Intermediate directories are created as needed. Returns
// the root directory.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("WriteTree: mkdir %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatalf("WriteTree: write %s: %v", path, err)
		}
	}
	return root
}
