package parser

import (
	"strings"

	"github.com/iderihatakeshi/v/internal/cgen"
	"github.com/iderihatakeshi/v/internal/importgraph"
	"github.com/iderihatakeshi/v/internal/phase"
	"github.com/iderihatakeshi/v/internal/prefs"
	"github.com/iderihatakeshi/v/internal/symtab"
)

type scanner struct {
	filePath string
	table    *symtab.SymbolTable
	sink     *cgen.Sink
	prefs    *prefs.Preferences
}

// Parse implements Parser: it reads the file and runs the step for pass
// against the concrete table, sink and preferences held above.
func (s *scanner) Parse(pass phase.Pass) error {
	lines, err := readLines(s.filePath)
	if err != nil {
		return err
	}
	switch pass {
	case phase.Imports:
		return s.parseImports(lines)
	case phase.Decl:
		return s.parseDecl(lines)
	case phase.Main:
		return s.parseMain(lines)
	}
	return nil
}

func (s *scanner) moduleName(lines []string) string {
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(l, "module "))
		}
	}
	return "main"
}

func (s *scanner) parseImports(lines []string) error {
	mod := s.moduleName(lines)
	var imports []string
	seen := map[string]bool{}
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if !strings.HasPrefix(l, "import ") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(l, "import "))
		if i := strings.IndexAny(name, " \t"); i >= 0 {
			name = name[:i] // drop "as alias" suffix
		}
		if name != "" && !seen[name] {
			seen[name] = true
			imports = append(imports, name)
		}
	}
	s.table.AddFileImport(importgraph.FileImport{
		FilePath:   s.filePath,
		ModuleName: mod,
		Imports:    imports,
	})
	return nil
}

func (s *scanner) parseDecl(lines []string) error {
	mod := s.moduleName(lines)
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, "fn "):
			name, _ := parseFnSignature(line)
			if name == "" {
				continue
			}
			s.table.AddFunction(&symtab.FunctionDescriptor{
				Name:    name,
				Module:  mod,
				File:    s.filePath,
				IsTest:  strings.HasPrefix(name, "test_"),
				HasMain: name == "main",
			})
		case strings.HasPrefix(line, "struct "):
			name := firstIdent(strings.TrimPrefix(line, "struct "))
			if name != "" {
				s.table.AddType(&symtab.TypeDescriptor{Name: name, Module: mod, File: s.filePath})
			}
		case strings.HasPrefix(line, "type "):
			name := firstIdent(strings.TrimPrefix(line, "type "))
			if name != "" {
				s.table.AddType(&symtab.TypeDescriptor{Name: name, Module: mod, File: s.filePath})
			}
		}
	}
	return nil
}

func (s *scanner) parseMain(lines []string) error {
	mod := s.moduleName(lines)
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "fn ") {
			if strings.HasPrefix(line, "const ") {
				s.emitTopLevelConst(line)
			}
			continue
		}
		name, params := parseFnSignature(line)
		if name == "" {
			continue
		}
		end := matchBrace(lines, i)
		var body []string
		if end > i {
			body = lines[i+1 : end]
		}
		s.emitFunction(mod, name, params, body)
		if fn := s.table.Functions[mod+"."+name]; fn != nil {
			fn.HasBody = true
			fn.IsLive = s.prefs.IsLive && hasLiveAnnotation(lines, i)
			if fn.IsLive {
				s.sink.AddSoFn(mod + "__" + name)
			}
		}
		i = end
	}
	return nil
}

func hasLiveAnnotation(lines []string, fnLine int) bool {
	if fnLine == 0 {
		return false
	}
	return strings.Contains(strings.TrimSpace(lines[fnLine-1]), "[live]")
}

// matchBrace returns the index of the line closing the brace opened on
// startLine (a crude, string-literal-unaware brace counter — adequate for
// the reference scanner's recognised statement subset).
func matchBrace(lines []string, startLine int) int {
	depth := 0
	started := false
	for i := startLine; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				started = true
			case '}':
				depth--
			}
		}
		if started && depth <= 0 {
			return i
		}
	}
	return len(lines) - 1
}

func parseFnSignature(line string) (name string, params string) {
	rest := strings.TrimPrefix(line, "fn ")
	open := strings.Index(rest, "(")
	if open < 0 {
		return "", ""
	}
	name = strings.TrimSpace(rest[:open])
	close := strings.Index(rest[open:], ")")
	if close < 0 {
		return name, ""
	}
	return name, rest[open+1 : open+close]
}

func firstIdent(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || (i > 0 && r >= '0' && r <= '9')) {
			return s[:i]
		}
	}
	return s
}

var cTypes = map[string]string{
	"int":    "int",
	"i64":    "long long",
	"i32":    "int",
	"u32":    "unsigned int",
	"u64":    "unsigned long long",
	"f64":    "double",
	"f32":    "float",
	"bool":   "int",
	"string": "v_string",
	"byte":   "unsigned char",
	"":       "void",
}

func cType(vType string) string {
	vType = strings.TrimSpace(vType)
	if c, ok := cTypes[vType]; ok {
		return c
	}
	return "void*"
}

// paramsToC turns "a int, b string" into "int a, v_string b".
func paramsToC(params string) string {
	params = strings.TrimSpace(params)
	if params == "" {
		return "void"
	}
	parts := strings.Split(params, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.Fields(p)
		if len(fields) < 2 {
			out = append(out, "void* "+p)
			continue
		}
		out = append(out, cType(fields[1])+" "+fields[0])
	}
	return strings.Join(out, ", ")
}

func (s *scanner) emitFunction(mod, name, params string, body []string) {
	cName := mod + "__" + name
	s.sink.WriteLine("void " + cName + "(" + paramsToC(params) + ") {")
	for _, line := range body {
		if stmt := translateStmt(line); stmt != "" {
			s.sink.WriteLine(stmt)
		}
	}
	s.sink.WriteLine("}")
}

func (s *scanner) emitTopLevelConst(line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "const "))
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return
	}
	name := strings.TrimSpace(rest[:eq])
	value := strings.TrimSpace(rest[eq+1:])
	typ := "int"
	switch {
	case strings.HasPrefix(value, "'"):
		typ = "v_string"
		value = translateExpr(value)
	case value == "true" || value == "false":
		typ = "int"
	}
	s.sink.AddConst("static const " + typ + " " + name + " = " + value + ";")
}

// translateStmt recognises a handful of statement forms (println, assert,
// return, plain calls) and otherwise passes the line through, ensuring a
// trailing semicolon where one is plainly missing.
func translateStmt(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	if trimmed == "}" || trimmed == "{" {
		return trimmed
	}
	switch {
	case strings.HasPrefix(trimmed, "println("):
		arg := strings.TrimSuffix(strings.TrimPrefix(trimmed, "println("), ")")
		return "v_println(" + translateExpr(arg) + ");"
	case strings.HasPrefix(trimmed, "assert "):
		cond := strings.TrimSpace(strings.TrimPrefix(trimmed, "assert "))
		return "v_assert(" + translateExpr(cond) + ", __FILE__, __LINE__);"
	case strings.HasPrefix(trimmed, "return"):
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "return"))
		if rest == "" {
			return "return;"
		}
		return "return " + translateExpr(rest) + ";"
	default:
		if strings.HasSuffix(trimmed, "{") || strings.HasSuffix(trimmed, ";") {
			return translateExpr(trimmed)
		}
		return translateExpr(trimmed) + ";"
	}
}

// translateExpr rewrites single-quoted string literals into _STR(...) calls
// over a double-quoted C string, per MainEmitter's _STR helper (spec §4.7).
// Everything else in an expression is passed through unchanged: arithmetic,
// call syntax, and identifiers are assumed C-compatible, which is the limit
// of what this reference scanner claims to translate.
func translateExpr(expr string) string {
	var out strings.Builder
	inSingle := false
	var lit strings.Builder
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c == '\'' {
			if inSingle {
				out.WriteString("_STR(\"")
				out.WriteString(strings.ReplaceAll(lit.String(), "\"", "\\\""))
				out.WriteString("\")")
				lit.Reset()
				inSingle = false
			} else {
				inSingle = true
			}
			continue
		}
		if inSingle {
			lit.WriteByte(c)
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}
