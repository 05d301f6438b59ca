// Package emit implements MainEmitter (spec §4.7): the program entry point,
// the _STR/_STR_TMP string helpers, and the three main-function modes
// (library, test harness, normal).
package emit

import (
	"sort"

	"github.com/iderihatakeshi/v/internal/cgen"
	"github.com/iderihatakeshi/v/internal/diagnostic"
	"github.com/iderihatakeshi/v/internal/prefs"
	"github.com/iderihatakeshi/v/internal/symtab"
)

// Emitter writes the program entry into a CGenSink.
type Emitter struct {
	Prefs *prefs.Preferences
	Table *symtab.SymbolTable
	Sink  *cgen.Sink
}

// New returns an Emitter.
func New(p *prefs.Preferences, table *symtab.SymbolTable, sink *cgen.Sink) *Emitter {
	return &Emitter{Prefs: p, Table: table, Sink: sink}
}

// Emit writes init_consts, the _STR/_STR_TMP helpers, and the main function
// appropriate to the build mode. Must run after the main pass, since it
// inspects which functions the parsers discovered.
func (e *Emitter) Emit() error {
	e.emitStringHelpers()
	e.emitInitConsts()
	return e.emitMain()
}

func (e *Emitter) emitStringHelpers() {
	e.Sink.WriteLine("static char _str_tmp_buf[4096];")
	e.Sink.WriteLine("static v_string _STR(const char* s) {")
	e.Sink.WriteLine("\tv_string r; r.str = strdup(s); r.len = (int)strlen(s); return r;")
	e.Sink.WriteLine("}")
	e.Sink.WriteLine("static v_string _STR_TMP(const char* s) {")
	e.Sink.WriteLine("\tv_string r; strncpy(_str_tmp_buf, s, sizeof(_str_tmp_buf)-1); r.str = _str_tmp_buf; r.len = (int)strlen(s); return r;")
	e.Sink.WriteLine("}")
	e.Sink.WriteLine("static void v_println(v_string s) { printf(\"%.*s\\n\", s.len, s.str); }")
	e.Sink.WriteLine("static int v_assert_fail_count = 0;")
	e.Sink.WriteLine("static void v_assert(int cond, const char* file, int line) {")
	e.Sink.WriteLine("\tif (!cond) { v_assert_fail_count++; fprintf(stderr, \"%s:%d: assertion failed\\n\", file, line); }")
	e.Sink.WriteLine("}")
}

func (e *Emitter) emitInitConsts() {
	e.Sink.WriteLine("static void init_consts(void) {")
	if e.Prefs.TargetOS == prefs.TargetWindows || e.Prefs.TargetOS == prefs.TargetMSVC {
		e.Sink.WriteLine("#ifdef _WIN32")
		e.Sink.WriteLine("\tSetConsoleOutputCP(65001);")
		e.Sink.WriteLine("#endif")
	}
	for _, mod := range sortedModuleNames(e.Table) {
		e.Sink.WriteLinef("\t%s__init_module();", mod)
	}
	if e.Prefs.IsLive {
		// v_live_start is defined by HotReloadEmitter; the forward
		// declaration it registers makes this call legal regardless of
		// emission order (spec §4.8: load_so must find the initial shared
		// object "at startup").
		e.Sink.WriteLine("\tv_live_start();")
	}
	e.Sink.WriteLine("}")
}

func sortedModuleNames(t *symtab.SymbolTable) []string {
	names := make([]string, 0, len(t.Modules))
	for m := range t.Modules {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

func (e *Emitter) emitMain() error {
	switch {
	case e.Prefs.BuildMode == prefs.ModeBuildModule:
		return nil // library build: no main
	case e.Prefs.IsTest:
		return e.emitTestMain()
	default:
		return e.emitNormalMain()
	}
}

func (e *Emitter) emitTestMain() error {
	tests := e.Table.TestFunctions()
	if len(tests) == 0 {
		return &diagnostic.FatalError{Kind: diagnostic.KindNoTestFunctions, Message: "no test_ functions found"}
	}
	if e.Table.UserMain() != nil {
		return &diagnostic.FatalError{Kind: diagnostic.KindTestWithMain, Message: "test build must not declare main"}
	}
	e.Sink.WriteLine("int main(void) {")
	e.Sink.WriteLine("\tinit_consts();")
	e.Sink.WriteLine("\tint v_test_fail_before = 0;")
	for _, fn := range tests {
		e.Sink.WriteLine("\tv_test_fail_before = v_assert_fail_count;")
		e.Sink.WriteLinef("\tprintf(\"RUN %s.%s\\n\");", fn.Module, fn.Name)
		e.Sink.WriteLinef("\t%s__%s();", fn.Module, fn.Name)
		e.Sink.WriteLinef("\tif (v_assert_fail_count > v_test_fail_before) { fprintf(stderr, \"FAIL %s.%s\\n\"); }", fn.Module, fn.Name)
	}
	e.Sink.WriteLine("\treturn v_assert_fail_count != 0 ? 1 : 0;")
	e.Sink.WriteLine("}")
	return nil
}

func (e *Emitter) emitNormalMain() error {
	userMain := e.Table.UserMain()
	if userMain == nil {
		if !e.Prefs.IsScript {
			return &diagnostic.FatalError{Kind: diagnostic.KindMissingMain, Message: "function `main` is not declared"}
		}
		e.Sink.WriteLine("int main(void) {")
		e.Sink.WriteLine("\tinit_consts();")
		e.Sink.WriteLine("\tmain__script_entry();")
		e.Sink.WriteLine("\treturn 0;")
		e.Sink.WriteLine("}")
		return nil
	}
	e.Sink.WriteLine("int main(void) {")
	e.Sink.WriteLine("\tinit_consts();")
	e.Sink.WriteLinef("\t%s__%s();", userMain.Module, userMain.Name)
	e.Sink.WriteLine("\treturn 0;")
	e.Sink.WriteLine("}")
	return nil
}
