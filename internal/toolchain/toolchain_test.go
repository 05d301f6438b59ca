package toolchain

import (
	"errors"
	"testing"

	"github.com/iderihatakeshi/v/internal/diagnostic"
)

func fakeEnv(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestLocateUnixPrefersCCEnv(t *testing.T) {
	lookPath := func(name string) (string, error) {
		return "/usr/bin/" + name, nil
	}
	tc, err := Locate(false, fakeEnv(map[string]string{"CC": "my-cc"}), lookPath)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if tc.CC != "/usr/bin/my-cc" {
		t.Errorf("expected $CC to win, got %s", tc.CC)
	}
}

func TestLocateUnixFallsBackToCC(t *testing.T) {
	lookPath := func(name string) (string, error) {
		if name == "cc" {
			return "/usr/bin/cc", nil
		}
		return "", errors.New("not found")
	}
	tc, err := Locate(false, fakeEnv(nil), lookPath)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if tc.CC != "/usr/bin/cc" {
		t.Errorf("expected cc, got %s", tc.CC)
	}
}

func TestLocateUnixFallsBackToGccThenClang(t *testing.T) {
	lookPath := func(name string) (string, error) {
		if name == "clang" {
			return "/usr/bin/clang", nil
		}
		return "", errors.New("not found")
	}
	tc, err := Locate(false, fakeEnv(nil), lookPath)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if tc.CC != "/usr/bin/clang" {
		t.Errorf("expected clang, got %s", tc.CC)
	}
}

func TestLocateUnixNoneFound(t *testing.T) {
	lookPath := func(name string) (string, error) { return "", errors.New("not found") }
	_, err := Locate(false, fakeEnv(nil), lookPath)
	fe, ok := err.(*diagnostic.FatalError)
	if !ok || fe.Kind != diagnostic.KindToolchainNotFound {
		t.Fatalf("expected ToolchainNotFound, got %v", err)
	}
}
