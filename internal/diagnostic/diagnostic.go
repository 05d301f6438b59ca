// Package diagnostic formats the error kinds and advisory notices named in
// spec §7, and the fail-fast single-diagnostic policy the driver applies on
// top of them.
package diagnostic

import (
	"fmt"
	"strings"
)

// Kind enumerates the error kinds the core surfaces (spec §7).
type Kind string

const (
	KindNoInputFiles             Kind = "NoInputFiles"
	KindPathNotFound             Kind = "PathNotFound"
	KindNotADirectory            Kind = "NotADirectory"
	KindModuleNotFound           Kind = "ModuleNotFound"
	KindImportCycle              Kind = "ImportCycle"
	KindParseError               Kind = "ParseError"
	KindMissingMain              Kind = "MissingMain"
	KindTestWithMain             Kind = "TestWithMain"
	KindNoTestFunctions          Kind = "NoTestFunctions"
	KindToolchainNotFound        Kind = "ToolchainNotFound"
	KindUnsupportedLinkDirective Kind = "UnsupportedLinkDirective"
	KindCompileFailure           Kind = "CompileFailure"
	KindInvalidFlag              Kind = "InvalidFlag"
)

// FatalError is the single diagnostic the parser or back-end fails with
// (spec §7: "the parser and back-end fail fast with a single diagnostic").
type FatalError struct {
	Kind    Kind
	File    string // set when Kind == ParseError
	Line    int
	Message string
	Output  string // captured toolchain stderr, for back-end errors
}

func (e *FatalError) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&sb, ":%d", e.Line)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Output != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Output)
	}
	return sb.String()
}

// Format renders err the way the driver prints a fatal diagnostic to
// standard output: a "V error:" prefix (spec §7). Non-FatalError values are
// formatted with their plain Error() text.
func Format(err error) string {
	if fe, ok := err.(*FatalError); ok {
		return "V error: " + fe.Error()
	}
	return "V error: " + err.Error()
}

// Severity distinguishes the advisory notices emitted by optional verbs
// (spec §7: "Missing optional tools... print a notice and exit 0") from the
// fatal errors above, which always carry a Kind instead.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "notice"
}

// Notice is a non-fatal message: printed, but the verb still exits 0.
type Notice struct {
	Severity Severity
	Message  string
}

func (n Notice) String() string {
	return n.Severity.String() + ": " + n.Message
}

// Collector accumulates notices for advisory verbs. Unlike FatalError, a
// Collector never causes the process to exit non-zero by itself.
type Collector struct {
	notices []Notice
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector { return &Collector{} }

// Info records an informational notice.
func (c *Collector) Info(message string) {
	if c == nil {
		return
	}
	c.notices = append(c.notices, Notice{Severity: SeverityInfo, Message: message})
}

// Warn records a warning notice.
func (c *Collector) Warn(message string) {
	if c == nil {
		return
	}
	c.notices = append(c.notices, Notice{Severity: SeverityWarning, Message: message})
}

// Notices returns every recorded notice in the order they were added.
func (c *Collector) Notices() []Notice {
	if c == nil {
		return nil
	}
	return c.notices
}

// FormatAll renders every notice, one per line.
func (c *Collector) FormatAll() string {
	if c == nil || len(c.notices) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, n := range c.notices {
		sb.WriteString(n.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
