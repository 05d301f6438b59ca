package diagnostic

import "testing"

func TestFormatPrefixesVError(t *testing.T) {
	err := &FatalError{Kind: KindMissingMain, Message: "function `main` is not declared"}
	got := Format(err)
	want := "V error: function `main` is not declared"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFatalErrorIncludesFileLine(t *testing.T) {
	err := &FatalError{Kind: KindParseError, File: "a.v", Line: 12, Message: "unexpected token"}
	got := err.Error()
	want := "a.v:12: unexpected token"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCollectorOrderPreserved(t *testing.T) {
	c := NewCollector()
	c.Info("vfmt not found, skipping")
	c.Warn("stale cache ignored")
	notices := c.Notices()
	if len(notices) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(notices))
	}
	if notices[0].Severity != SeverityInfo || notices[1].Severity != SeverityWarning {
		t.Errorf("unexpected severities: %+v", notices)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.Info("ignored")
	if c.FormatAll() != "" {
		t.Errorf("expected empty string from nil collector")
	}
}
