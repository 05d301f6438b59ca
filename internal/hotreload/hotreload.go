// Package hotreload implements HotReloadEmitter (spec §4.8): the C mutex,
// load_so/reload_so shim emitted into the output when Preferences.IsLive.
// The Go-side watch/rebuild loop that feeds it lives in cmd/v (runLive).
//
// Grounded on cmd/tsgonest/dev.go's build→start→watch→rebuild→restart loop
// — the closest teacher analogue to live mode in the whole pack — but what
// gets restarted differs: the teacher restarts a child node process; here
// the already-running compiled program reloads its own symbols via the
// generated reload_so() shim, so the Go driver's job is only to rebuild the
// shared object and let the program pick it up (spec §4.8, §5).
package hotreload

import (
	"fmt"

	"github.com/iderihatakeshi/v/internal/cgen"
	"github.com/iderihatakeshi/v/internal/prefs"
)

// Emitter writes the hot-reload shim into a CGenSink.
type Emitter struct {
	Prefs *prefs.Preferences
	Sink  *cgen.Sink
}

// New returns an Emitter.
func New(p *prefs.Preferences, sink *cgen.Sink) *Emitter {
	return &Emitter{Prefs: p, Sink: sink}
}

// Emit writes the shim described in spec §4.8, if Preferences.IsLive. It is
// a no-op otherwise.
func (e *Emitter) Emit(sourcePath, soPath string) {
	if !e.Prefs.IsLive {
		return
	}
	if e.Prefs.TargetOS == prefs.TargetWindows || e.Prefs.TargetOS == prefs.TargetMSVC {
		e.emitWindows(sourcePath, soPath)
		return
	}
	e.emitPOSIX(sourcePath, soPath)
}

func (e *Emitter) emitPOSIX(sourcePath, soPath string) {
	s := e.Sink
	s.AddInclude("#include <dlfcn.h>")
	s.AddInclude("#include <pthread.h>")
	s.AddInclude("#include <sys/stat.h>")
	s.AddInclude("#include <time.h>")
	s.AddInclude("#include <unistd.h>")

	s.AddForwardDecl("static void v_live_start(void);")

	s.WriteLine("static pthread_mutex_t v_live_mutex = PTHREAD_MUTEX_INITIALIZER;")
	s.WriteLine("static void* v_live_handle = NULL;")
	for _, sym := range s.SoFns() {
		s.WriteLinef("static void (*%s_ptr)(void) = NULL;", sym)
	}

	s.WriteLine("static int load_so(const char* path) {")
	s.WriteLine("\tvoid* h = dlopen(path, RTLD_NOW);")
	s.WriteLine("\tif (!h) return 0;")
	for _, sym := range s.SoFns() {
		s.WriteLinef("\t%s_ptr = (void (*)(void))dlsym(h, \"%s\");", sym, sym)
	}
	s.WriteLine("\tv_live_handle = h;")
	s.WriteLine("\treturn 1;")
	s.WriteLine("}")

	s.WriteLinef("static const char* v_live_source_path = %q;", sourcePath)
	s.WriteLinef("static const char* v_live_so_base = %q;", soPath)

	// reload_so watches the source file's mtime as the trigger, then polls
	// for the next versioned shared object the Go-side driver produces
	// (spec §4.8 item 3; the driver itself owns recompilation, per spec
	// §9's Design Notes steer away from teardown/race hazards baked into
	// the source). A small lookahead window absorbs a rebuild that lands
	// a version or two ahead of the one last loaded.
	s.WriteLine("static void* reload_so(void* unused) {")
	s.WriteLine("\t(void)unused;")
	s.WriteLine("\tstruct stat st; time_t last_mtime = 0;")
	s.WriteLine("\tchar tmp_path[1024]; char prev_tmp_path[1024] = {0};")
	s.WriteLine("\tint version = 1; int pending = 0;")
	s.WriteLine("\tfor (;;) {")
	s.WriteLine("\t\tif (stat(v_live_source_path, &st) == 0 && st.st_mtime != last_mtime) {")
	s.WriteLine("\t\t\tlast_mtime = st.st_mtime;")
	s.WriteLine("\t\t\tpending = 1;")
	s.WriteLine("\t\t}")
	s.WriteLine("\t\tif (!pending) { usleep(200000); continue; }")
	s.WriteLine("\t\tint found = -1;")
	s.WriteLine("\t\tfor (int v = version; v < version + 10; v++) {")
	s.WriteLine("\t\t\tstruct stat probe;")
	s.WriteLine("\t\t\tsnprintf(tmp_path, sizeof(tmp_path), \".tmp.%d.%s\", v, v_live_so_base);")
	s.WriteLine("\t\t\tif (stat(tmp_path, &probe) == 0) found = v;")
	s.WriteLine("\t\t}")
	s.WriteLine("\t\tif (found < 0) { usleep(100000); continue; }")
	s.WriteLine("\t\tsnprintf(tmp_path, sizeof(tmp_path), \".tmp.%d.%s\", found, v_live_so_base);")
	s.WriteLine("\t\tpthread_mutex_lock(&v_live_mutex);")
	s.WriteLine("\t\tif (load_so(tmp_path)) {")
	s.WriteLine("\t\t\tif (prev_tmp_path[0] != '\\0') unlink(prev_tmp_path);")
	s.WriteLine("\t\t\tstrncpy(prev_tmp_path, tmp_path, sizeof(prev_tmp_path)-1);")
	s.WriteLine("\t\t\tversion = found + 1;")
	s.WriteLine("\t\t\tpending = 0;")
	s.WriteLine("\t\t}")
	s.WriteLine("\t\tpthread_mutex_unlock(&v_live_mutex);")
	s.WriteLine("\t\tusleep(100000);")
	s.WriteLine("\t}")
	s.WriteLine("\treturn NULL;")
	s.WriteLine("}")

	// v_live_start is called from init_consts (MainEmitter) to load the
	// initial shared object the driver built before linking the main
	// program, then hand the watch loop to a background thread.
	s.WriteLine("static void v_live_start(void) {")
	s.WriteLine("\tload_so(v_live_so_base);")
	s.WriteLine("\tpthread_t v_live_thread;")
	s.WriteLine("\tpthread_create(&v_live_thread, NULL, reload_so, NULL);")
	s.WriteLine("}")
}

func (e *Emitter) emitWindows(sourcePath, soPath string) {
	s := e.Sink
	s.AddInclude("#include <windows.h>")

	s.AddForwardDecl("static void v_live_start(void);")

	s.WriteLine("static HANDLE v_live_mutex;")
	s.WriteLine("static HMODULE v_live_handle = NULL;")
	for _, sym := range s.SoFns() {
		s.WriteLinef("static void (*%s_ptr)(void) = NULL;", sym)
	}

	s.WriteLine("static int load_so(const char* path) {")
	s.WriteLine("\tHMODULE h = LoadLibraryA(path);")
	s.WriteLine("\tif (!h) return 0;")
	for _, sym := range s.SoFns() {
		s.WriteLinef("\t%s_ptr = (void (*)(void))GetProcAddress(h, \"%s\");", sym, sym)
	}
	s.WriteLine("\tv_live_handle = h;")
	s.WriteLine("\treturn 1;")
	s.WriteLine("}")

	s.WriteLinef("static const char* v_live_source_path = %q;", sourcePath)
	s.WriteLinef("static const char* v_live_so_base = %q;", soPath)

	s.WriteLine("static DWORD WINAPI reload_so(LPVOID unused) {")
	s.WriteLine("\t(void)unused;")
	s.WriteLine("\tv_live_mutex = CreateMutexA(NULL, FALSE, NULL);")
	s.WriteLine("\tFILETIME last_write = {0};")
	s.WriteLine("\tchar tmp_path[1024]; char prev_tmp_path[1024] = {0};")
	s.WriteLine("\tint version = 1; int pending = 0;")
	s.WriteLine("\tfor (;;) {")
	s.WriteLine("\t\tWIN32_FILE_ATTRIBUTE_DATA data;")
	s.WriteLine("\t\tif (GetFileAttributesExA(v_live_source_path, GetFileExInfoStandard, &data) &&")
	s.WriteLine("\t\t    CompareFileTime(&data.ftLastWriteTime, &last_write) != 0) {")
	s.WriteLine("\t\t\tlast_write = data.ftLastWriteTime;")
	s.WriteLine("\t\t\tpending = 1;")
	s.WriteLine("\t\t}")
	s.WriteLine("\t\tif (!pending) { Sleep(200); continue; }")
	s.WriteLine("\t\tint found = -1;")
	s.WriteLine("\t\tfor (int v = version; v < version + 10; v++) {")
	s.WriteLine("\t\t\tWIN32_FILE_ATTRIBUTE_DATA probe;")
	s.WriteLine(fmt.Sprintf("\t\t\tsprintf_s(tmp_path, sizeof(tmp_path), \".tmp.%%d.%%s\", v, v_live_so_base);"))
	s.WriteLine("\t\t\tif (GetFileAttributesExA(tmp_path, GetFileExInfoStandard, &probe)) found = v;")
	s.WriteLine("\t\t}")
	s.WriteLine("\t\tif (found < 0) { Sleep(100); continue; }")
	s.WriteLine(fmt.Sprintf("\t\tsprintf_s(tmp_path, sizeof(tmp_path), \".tmp.%%d.%%s\", found, v_live_so_base);"))
	s.WriteLine("\t\tWaitForSingleObject(v_live_mutex, INFINITE);")
	s.WriteLine("\t\tif (load_so(tmp_path)) {")
	s.WriteLine("\t\t\tif (prev_tmp_path[0] != '\\0') DeleteFileA(prev_tmp_path);")
	s.WriteLine("\t\t\tstrncpy_s(prev_tmp_path, sizeof(prev_tmp_path), tmp_path, _TRUNCATE);")
	s.WriteLine("\t\t\tversion = found + 1;")
	s.WriteLine("\t\t\tpending = 0;")
	s.WriteLine("\t\t}")
	s.WriteLine("\t\tReleaseMutex(v_live_mutex);")
	s.WriteLine("\t\tSleep(100);")
	s.WriteLine("\t}")
	s.WriteLine("\treturn 0;")
	s.WriteLine("}")

	s.WriteLine("static void v_live_start(void) {")
	s.WriteLine("\tload_so(v_live_so_base);")
	s.WriteLine("\tCreateThread(NULL, 0, reload_so, NULL, 0, NULL);")
	s.WriteLine("}")
}
