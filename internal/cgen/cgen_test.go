package cgen

import (
	"strings"
	"testing"
)

func TestRenderOrder(t *testing.T) {
	s := New()
	s.AddInclude("#include <stdio.h>")
	s.AddTypedef("typedef struct {} string;")
	if err := s.ReserveDefinitions(); err != nil {
		t.Fatal(err)
	}
	s.AddConst("const int X = 1;")
	s.WriteLine("int main(void) { return 0; }")

	if err := s.WriteDefinitions([]string{"void f(void);"}); err != nil {
		t.Fatal(err)
	}

	out, err := s.Render()
	if err != nil {
		t.Fatal(err)
	}

	order := []string{"#include <stdio.h>", "typedef struct {} string;", "void f(void);", "const int X = 1;", "int main(void) { return 0; }"}
	last := -1
	for _, want := range order {
		idx := strings.Index(out, want)
		if idx < 0 {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
		if idx <= last {
			t.Fatalf("%q out of order", want)
		}
		last = idx
	}
}

func TestWriteDefinitionsRequiresReserve(t *testing.T) {
	s := New()
	if err := s.WriteDefinitions(nil); err != ErrNotReserved {
		t.Fatalf("got %v, want ErrNotReserved", err)
	}
}

func TestReserveTwiceFails(t *testing.T) {
	s := New()
	if err := s.ReserveDefinitions(); err != nil {
		t.Fatal(err)
	}
	if err := s.ReserveDefinitions(); err != ErrAlreadyReserved {
		t.Fatalf("got %v, want ErrAlreadyReserved", err)
	}
}

func TestWriteDefinitionsTwiceFails(t *testing.T) {
	s := New()
	s.ReserveDefinitions()
	if err := s.WriteDefinitions([]string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteDefinitions([]string{"b"}); err != ErrAlreadyWritten {
		t.Fatalf("got %v, want ErrAlreadyWritten", err)
	}
}

func TestSaveIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := New()
	s.WriteLine("int main(void) { return 0; }")
	path := dir + "/out.tmp.c"
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("second Save should be a no-op, got %v", err)
	}
}
