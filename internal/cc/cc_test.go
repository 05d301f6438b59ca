package cc

import (
	"testing"

	"github.com/iderihatakeshi/v/internal/diagnostic"
	"github.com/iderihatakeshi/v/internal/prefs"
	"github.com/iderihatakeshi/v/internal/testutil"
	"github.com/iderihatakeshi/v/internal/toolchain"
)

func TestScanFlags(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"a.v": "#flag -lm\n#flag -I/usr/local/include\nmodule main\n",
		"b.v": "#flag -L/opt/lib\n#flag -DFOO\n",
	})
	flags, err := ScanFlags([]string{dir + "/a.v", dir + "/b.v"})
	if err != nil {
		t.Fatalf("ScanFlags: %v", err)
	}
	if len(flags.Libs) != 1 || flags.Libs[0] != "m" {
		t.Errorf("expected lib m, got %v", flags.Libs)
	}
	if len(flags.IncludeDirs) != 1 || flags.IncludeDirs[0] != "/usr/local/include" {
		t.Errorf("expected include dir, got %v", flags.IncludeDirs)
	}
	if len(flags.LibDirs) != 1 || flags.LibDirs[0] != "/opt/lib" {
		t.Errorf("expected lib dir, got %v", flags.LibDirs)
	}
	if len(flags.Raw) != 1 || flags.Raw[0] != "-DFOO" {
		t.Errorf("expected raw flag -DFOO, got %v", flags.Raw)
	}
}

func TestInvokeMSVCRejectsDLLLink(t *testing.T) {
	p := &prefs.Preferences{OutName: "out.exe"}
	tc := &toolchain.Toolchain{MSVC: &toolchain.MSVC{CL: "cl.exe"}}
	inv := New(p, tc)

	dir := testutil.WriteTree(t, map[string]string{
		"a.v": "#flag -lfoo.dll\n",
	})
	err := inv.Invoke("out.tmp.c", []string{dir + "/a.v"}, "")
	fe, ok := err.(*diagnostic.FatalError)
	if !ok || fe.Kind != diagnostic.KindUnsupportedLinkDirective {
		t.Fatalf("expected UnsupportedLinkDirective, got %v", err)
	}
}

func TestRewriteObjName(t *testing.T) {
	if got := rewriteObjName("stdlib.o"); got != "stdlib.obj" {
		t.Errorf("expected stdlib.obj, got %s", got)
	}
	if got := rewriteObjName("main.tmp.c"); got != "main.tmp.c" {
		t.Errorf("expected unchanged, got %s", got)
	}
}
