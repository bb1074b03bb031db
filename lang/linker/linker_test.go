package linker_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/mna/tangle/lang/config"
	"github.com/mna/tangle/lang/linker"
	"github.com/mna/tangle/lang/object"
	"github.com/mna/tangle/lang/parser"
)

func mustParse(t *testing.T, name, headerLine string, body ...string) *object.Object {
	t.Helper()
	var b strings.Builder
	b.WriteString("\n\n    ")
	b.WriteString(headerLine)
	b.WriteString("\n    ")
	b.WriteString(strings.Repeat("-", len(headerLine)))
	b.WriteString("\n\n")
	for _, line := range body {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	obj, err := parser.Parse(config.Config{}, name, []byte(b.String()))
	if err != nil {
		t.Fatalf("Parse(%s): %v", name, err)
	}
	return obj
}

// TestLinkCrossObjectThreading grounds S2: two objects each declaring the
// same tag thread into a single chain via a generation-tagged jmp at the
// first segment's exit.
func TestLinkCrossObjectThreading(t *testing.T) {
	o1 := mustParse(t, "a", "lang: X esc: none tag: #foo", "abc")
	o2 := mustParse(t, "b", "lang: X esc: none tag: #foo", "xyz")

	l := linker.New()
	l.Add(o1)
	l.Add(o2)
	if err := l.Link(); err != nil {
		t.Fatalf("Link: %v", err)
	}

	entry, ok := l.Procedure("foo")
	if !ok {
		t.Fatal("tag foo not resolved")
	}
	if entry.Module != 1 {
		t.Errorf("procedure module = %d, want 1 (first declaration owns the entry)", entry.Module)
	}

	adj := o1.Adjacent["foo"]
	exit := o1.Program[adj.Exit]
	if exit.Op != object.JMP {
		t.Fatalf("first segment's exit = %v, want jmp", exit)
	}
	if exit.Module() != 2 {
		t.Errorf("jmp module = %d, want 2", exit.Module())
	}
	o2Adj := o2.Adjacent["foo"]
	if exit.Address() != o2Adj.Entry {
		t.Errorf("jmp address = %d, want %d", exit.Address(), o2Adj.Entry)
	}

	lastExit := o2.Program[o2Adj.Exit]
	if lastExit.Op != object.RET {
		t.Errorf("final segment's exit = %v, want ret", lastExit)
	}
}

// TestLinkPatchesCallSites grounds I1: every call instruction gets a
// resolvable (address, module) after Link.
func TestLinkPatchesCallSites(t *testing.T) {
	caller := mustParse(t, "a", "lang: X esc: <<>> file: out.txt", "<<greeting>>")
	callee := mustParse(t, "b", "lang: X esc: none tag: #greeting", "hello")

	l := linker.New()
	l.Add(caller)
	l.Add(callee)
	if err := l.Link(); err != nil {
		t.Fatalf("Link: %v", err)
	}

	fe, ok := l.File("out.txt")
	if !ok {
		t.Fatal("file out.txt not resolved")
	}
	var call object.Instruction
	for _, ins := range caller.Program[fe.Address:] {
		if ins.Op == object.CALL {
			call = ins
			break
		}
	}
	if call.Op != object.CALL {
		t.Fatal("no call instruction found")
	}
	wantEntry, _ := l.Procedure("greeting")
	if call.Address() != wantEntry.Address || call.Module() != wantEntry.Module {
		t.Errorf("call = (address=%d, module=%d), want (%d, %d)",
			call.Address(), call.Module(), wantEntry.Address, wantEntry.Module)
	}
}

// TestLinkRejectsDuplicateFile grounds S6.
func TestLinkRejectsDuplicateFile(t *testing.T) {
	o1 := mustParse(t, "a", "lang: X esc: none file: out.txt", "abc")
	o2 := mustParse(t, "b", "lang: X esc: none file: out.txt", "abc")

	l := linker.New()
	l.Add(o1)
	l.Add(o2)
	err := l.Link()
	if err == nil {
		t.Fatal("expected an error")
	}
	var le *linker.Error
	if !errors.As(err, &le) || le.Kind != linker.ErrMultipleFilesSameName {
		t.Errorf("got %v, want ErrMultipleFilesSameName", err)
	}
}

// TestLinkReportsAggregatedUnknownSymbols grounds §4.3 step 7 / §7's
// aggregated unknown-symbol report.
func TestLinkReportsAggregatedUnknownSymbols(t *testing.T) {
	o := mustParse(t, "a", "lang: X esc: <<>> file: out.txt", "<<missing1>> <<missing2>>")

	l := linker.New()
	l.Add(o)
	err := l.Link()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "missing1") || !strings.Contains(err.Error(), "missing2") {
		t.Errorf("got %v, want both missing names reported", err)
	}
}

// TestLinkIdempotent grounds P3: relinking produces an identical table and
// every jmp carries the latest generation.
func TestLinkIdempotent(t *testing.T) {
	o1 := mustParse(t, "a", "lang: X esc: none tag: #foo", "abc")
	o2 := mustParse(t, "b", "lang: X esc: none tag: #foo", "xyz")

	l := linker.New()
	l.Add(o1)
	l.Add(o2)
	if err := l.Link(); err != nil {
		t.Fatalf("Link: %v", err)
	}
	first, _ := l.Procedure("foo")

	if err := l.Link(); err != nil {
		t.Fatalf("second Link: %v", err)
	}
	second, _ := l.Procedure("foo")

	if first != second {
		t.Errorf("got %+v, want %+v (stable across relink)", second, first)
	}

	adj := o1.Adjacent["foo"]
	exit := o1.Program[adj.Exit]
	if exit.Op != object.JMP {
		t.Fatalf("exit = %v, want jmp", exit)
	}
	// the generation bumped on the second Link; the jmp must carry it.
	if exit.Generation() != 2 {
		t.Errorf("jmp generation = %d, want 2", exit.Generation())
	}
}

func TestLinkFileAndTagNames(t *testing.T) {
	o := mustParse(t, "a", "lang: X esc: none file: out.txt", "abc")
	o2 := mustParse(t, "b", "lang: X esc: none tag: #foo", "xyz")

	l := linker.New()
	l.Add(o)
	l.Add(o2)
	if err := l.Link(); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if names := l.FileNames(); len(names) != 1 || names[0] != "out.txt" {
		t.Errorf("FileNames = %v, want [out.txt]", names)
	}
	if names := l.TagNames(); len(names) != 1 || names[0] != "foo" {
		t.Errorf("TagNames = %v, want [foo]", names)
	}
}
