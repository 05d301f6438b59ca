package emit

import (
	"strings"
	"testing"

	"github.com/iderihatakeshi/v/internal/cgen"
	"github.com/iderihatakeshi/v/internal/diagnostic"
	"github.com/iderihatakeshi/v/internal/prefs"
	"github.com/iderihatakeshi/v/internal/symtab"
)

func TestEmitNormalMainMissing(t *testing.T) {
	table := symtab.New()
	sink := cgen.New()
	e := New(&prefs.Preferences{}, table, sink)
	err := e.Emit()
	fe, ok := err.(*diagnostic.FatalError)
	if !ok || fe.Kind != diagnostic.KindMissingMain {
		t.Fatalf("expected MissingMain, got %v", err)
	}
}

func TestEmitNormalMainPresent(t *testing.T) {
	table := symtab.New()
	table.AddFunction(&symtab.FunctionDescriptor{Name: "main", Module: "main", HasMain: true})
	sink := cgen.New()
	e := New(&prefs.Preferences{}, table, sink)
	if err := e.Emit(); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out, _ := sink.Render()
	if !strings.Contains(out, "main__main();") {
		t.Errorf("expected call to main__main, got:\n%s", out)
	}
}

func TestEmitTestModeNoTests(t *testing.T) {
	table := symtab.New()
	sink := cgen.New()
	e := New(&prefs.Preferences{IsTest: true}, table, sink)
	err := e.Emit()
	fe, ok := err.(*diagnostic.FatalError)
	if !ok || fe.Kind != diagnostic.KindNoTestFunctions {
		t.Fatalf("expected NoTestFunctions, got %v", err)
	}
}

func TestEmitInitConstsCallsLiveStartUnderLive(t *testing.T) {
	table := symtab.New()
	table.AddFunction(&symtab.FunctionDescriptor{Name: "main", Module: "main", HasMain: true})
	sink := cgen.New()
	e := New(&prefs.Preferences{IsLive: true}, table, sink)
	if err := e.Emit(); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out, _ := sink.Render()
	if !strings.Contains(out, "v_live_start();") {
		t.Errorf("expected init_consts to call v_live_start() under -live, got:\n%s", out)
	}
}

// TestEmitTestModeTracksFailuresPerTest checks that a failing test doesn't
// poison the FAIL report for every test_ function that runs after it: each
// call site must compare against the fail count captured right before it,
// not treat any nonzero running total as this test's own failure.
func TestEmitTestModeTracksFailuresPerTest(t *testing.T) {
	table := symtab.New()
	table.AddFunction(&symtab.FunctionDescriptor{Name: "test_a", Module: "main", IsTest: true})
	table.AddFunction(&symtab.FunctionDescriptor{Name: "test_b", Module: "main", IsTest: true})
	sink := cgen.New()
	e := New(&prefs.Preferences{IsTest: true}, table, sink)
	if err := e.Emit(); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out, _ := sink.Render()

	beforeA := strings.Index(out, "v_test_fail_before = v_assert_fail_count;")
	callA := strings.Index(out, "main__test_a();")
	checkA := strings.Index(out, "FAIL main.test_a")
	callB := strings.Index(out, "main__test_b();")
	checkB := strings.Index(out, "FAIL main.test_b")
	if beforeA < 0 || callA < 0 || checkA < 0 || callB < 0 || checkB < 0 {
		t.Fatalf("expected both tests' run/check sequence in:\n%s", out)
	}
	if !(beforeA < callA && callA < checkA && checkA < callB && callB < checkB) {
		t.Fatalf("expected test_a's before/run/check to precede test_b's, got:\n%s", out)
	}
	if !strings.Contains(out, "v_assert_fail_count > v_test_fail_before") {
		t.Errorf("expected each test's FAIL check to compare against its own snapshot, got:\n%s", out)
	}
}

func TestEmitTestModeWithUserMainFails(t *testing.T) {
	table := symtab.New()
	table.AddFunction(&symtab.FunctionDescriptor{Name: "test_one", Module: "main", IsTest: true})
	table.AddFunction(&symtab.FunctionDescriptor{Name: "main", Module: "main", HasMain: true})
	sink := cgen.New()
	e := New(&prefs.Preferences{IsTest: true}, table, sink)
	err := e.Emit()
	fe, ok := err.(*diagnostic.FatalError)
	if !ok || fe.Kind != diagnostic.KindTestWithMain {
		t.Fatalf("expected TestWithMain, got %v", err)
	}
}
