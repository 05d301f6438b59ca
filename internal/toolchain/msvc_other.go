//go:build !windows

package toolchain

import "github.com/iderihatakeshi/v/internal/diagnostic"

// locateMSVC is unreachable on non-Windows hosts: Preferences validation
// rejects -os msvc unless the host itself is Windows.
func locateMSVC(getenv func(string) string) (*MSVC, error) {
	return nil, &diagnostic.FatalError{
		Kind:    diagnostic.KindToolchainNotFound,
		Message: "MSVC toolchain is only available on Windows hosts",
	}
}
