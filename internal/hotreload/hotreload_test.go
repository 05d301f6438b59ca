package hotreload

import (
	"strings"
	"testing"

	"github.com/iderihatakeshi/v/internal/cgen"
	"github.com/iderihatakeshi/v/internal/prefs"
)

func TestEmitNoOpWithoutLive(t *testing.T) {
	sink := cgen.New()
	e := New(&prefs.Preferences{}, sink)
	e.Emit("main.v", "main.so")

	out, err := sink.Render()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "reload_so") {
		t.Errorf("expected no hot-reload shim without -live, got:\n%s", out)
	}
}

func TestEmitPOSIXShim(t *testing.T) {
	sink := cgen.New()
	sink.AddSoFn("main__on_tick")
	p := &prefs.Preferences{IsLive: true, TargetOS: prefs.TargetLinux}
	e := New(p, sink)
	e.Emit("main.v", "main.so")

	out, err := sink.Render()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"#include <dlfcn.h>",
		"pthread_mutex_t v_live_mutex",
		"main__on_tick_ptr",
		"reload_so(void* unused)",
		"unlink(prev_tmp_path)",
		"static void v_live_start(void);",
		"pthread_create(&v_live_thread, NULL, reload_so, NULL);",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in POSIX shim, got:\n%s", want, out)
		}
	}
}

// TestPOSIXShimForwardDeclPrecedesDefinition verifies the forward
// declaration for v_live_start (needed because MainEmitter's init_consts
// calls it before HotReloadEmitter's definitions appear in the body) lands
// in the sink's separate fns buffer, which Render always places ahead of
// the body regardless of call order.
func TestPOSIXShimForwardDeclPrecedesDefinition(t *testing.T) {
	sink := cgen.New()
	p := &prefs.Preferences{IsLive: true, TargetOS: prefs.TargetLinux}
	New(p, sink).Emit("main.v", "main.so")
	sink.WriteLine("int main(void) { v_live_start(); return 0; }")

	out, err := sink.Render()
	if err != nil {
		t.Fatal(err)
	}
	declIdx := strings.Index(out, "static void v_live_start(void);")
	callIdx := strings.Index(out, "v_live_start(); return 0;")
	defIdx := strings.Index(out, "static void v_live_start(void) {")
	if declIdx < 0 || callIdx < 0 || defIdx < 0 {
		t.Fatalf("missing expected pieces in:\n%s", out)
	}
	if !(declIdx < callIdx) {
		t.Errorf("forward declaration must precede the call site")
	}
	if !(declIdx < defIdx) {
		t.Errorf("forward declaration must precede the definition")
	}
}

func TestEmitWindowsShim(t *testing.T) {
	sink := cgen.New()
	sink.AddSoFn("main__on_tick")
	p := &prefs.Preferences{IsLive: true, TargetOS: prefs.TargetWindows}
	e := New(p, sink)
	e.Emit("main.v", "main.dll")

	out, err := sink.Render()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"#include <windows.h>",
		"LoadLibraryA(path)",
		"DeleteFileA(prev_tmp_path)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in Windows shim, got:\n%s", want, out)
		}
	}
}
