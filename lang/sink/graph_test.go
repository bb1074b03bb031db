package sink_test

import (
	"strings"
	"testing"

	"github.com/mna/tangle/lang/config"
	"github.com/mna/tangle/lang/interp"
	"github.com/mna/tangle/lang/linker"
	"github.com/mna/tangle/lang/object"
	"github.com/mna/tangle/lang/parser"
	"github.com/mna/tangle/lang/sink"
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

// TestGraphRecordsPreOrderCallTree grounds spec.md §4.5's Graph sink
// contract: a layer per live frame, edges attributed to the callee's own
// name at ret, and the root's edges finalized at terminate.
func TestGraphRecordsPreOrderCallTree(t *testing.T) {
	file := mustParse(t, "a", "lang: X esc: <<>> file: example", "<<a>> <<b>>")
	a := mustParse(t, "b", "lang: X esc: <<>> tag: #a", "<<leaf>>")
	b := mustParse(t, "c", "lang: X esc: none tag: #b", "y")
	leaf := mustParse(t, "d", "lang: X esc: none tag: #leaf", "z")

	l := linker.New()
	for _, o := range []*object.Object{file, a, b, leaf} {
		l.Add(o)
	}
	if err := l.Link(); err != nil {
		t.Fatalf("Link: %v", err)
	}

	g := sink.NewGraph()
	it := interp.New(l)
	if err := it.CallFile("example", g); err != nil {
		t.Fatalf("CallFile: %v", err)
	}

	var out strings.Builder
	if err := g.Render(&out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	rendered := out.String()

	for _, node := range []string{"leaf", "a", "b", "example"} {
		if !strings.Contains(rendered, `"`+node+`";`) {
			t.Errorf("rendered graph missing node %q:\n%s", node, rendered)
		}
	}
	for _, edge := range [][2]string{{"a", "leaf"}, {"example", "a"}, {"example", "b"}} {
		want := `"` + edge[0] + `" -> "` + edge[1] + `";`
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered graph missing edge %q:\n%s", want, rendered)
		}
	}
}

// TestGraphIgnoresText confirms the presentation sink's required Write and
// Indent hooks are no-ops: only structure is recorded.
func TestGraphIgnoresText(t *testing.T) {
	g := sink.NewGraph()
	if err := g.Write([]byte("anything"), 5); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := g.Indent(10); err != nil {
		t.Fatalf("Indent: %v", err)
	}
}
