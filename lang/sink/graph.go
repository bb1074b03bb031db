package sink

import (
	"io"
	"text/template"

	"github.com/mna/tangle/lang/interp"
)

var (
	_ interp.Sink          = (*Graph)(nil)
	_ interp.CallSink      = (*Graph)(nil)
	_ interp.RetSink       = (*Graph)(nil)
	_ interp.TerminateSink = (*Graph)(nil)
)

// graphLayer accumulates the names of every tag directly called while its
// frame is live, per spec.md §4.5: "a stack of layers, each holding a list
// of child names discovered in the current frame."
type graphLayer struct {
	children []string
}

type graphEdge struct {
	From, To string
}

// Graph is the presentation sink: it ignores tangled text entirely (Write
// and Indent are no-ops) and instead records the pre-order call tree,
// rendering it as a DOT-like digraph on Render. The internal node/edge
// format isn't normative (spec.md §4.5); text/template is the whole
// rendering layer.
type Graph struct {
	stack []graphLayer

	nodes    []string
	nodeSeen map[string]bool
	edges    []graphEdge
	edgeSeen map[[2]string]bool
}

// NewGraph returns an empty Graph ready to observe one call_tag/call_file
// invocation.
func NewGraph() *Graph {
	return &Graph{
		stack:    []graphLayer{{}},
		nodeSeen: make(map[string]bool),
		edgeSeen: make(map[[2]string]bool),
	}
}

// Write is a no-op: the graph sink records structure, not tangled text.
func (g *Graph) Write([]byte, uint16) error { return nil }

// Indent is a no-op for the same reason as Write.
func (g *Graph) Indent(uint16) error { return nil }

// Call pushes a fresh layer for the callee's own children.
func (g *Graph) Call() error {
	g.stack = append(g.stack, graphLayer{})
	return nil
}

// Ret pops the current layer, attributing its children to name, then
// records name as a child of the (now top) parent layer.
func (g *Graph) Ret(name string) error {
	return g.close(name)
}

// Terminate finalizes the root layer: the entry point itself has no
// parent to record an edge into.
func (g *Graph) Terminate(name string) error {
	return g.close(name)
}

func (g *Graph) close(name string) error {
	top := g.stack[len(g.stack)-1]
	g.stack = g.stack[:len(g.stack)-1]

	if !g.nodeSeen[name] {
		g.nodeSeen[name] = true
		g.nodes = append(g.nodes, name)
	}
	for _, child := range top.children {
		key := [2]string{name, child}
		if !g.edgeSeen[key] {
			g.edgeSeen[key] = true
			g.edges = append(g.edges, graphEdge{From: name, To: child})
		}
	}
	if len(g.stack) > 0 {
		parent := &g.stack[len(g.stack)-1]
		parent.children = append(parent.children, name)
	}
	return nil
}

var graphTemplate = template.Must(template.New("graph").Parse(
	`digraph tangle {
{{- range .Nodes }}
  "{{ . }}";
{{- end }}
{{- range .Edges }}
  "{{ .From }}" -> "{{ .To }}";
{{- end }}
}
`))

// Render writes the recorded call tree to w as a DOT-like digraph. It may
// be called once, after the observed invocation has terminated.
func (g *Graph) Render(w io.Writer) error {
	data := struct {
		Nodes []string
		Edges []graphEdge
	}{g.nodes, g.edges}
	return graphTemplate.Execute(w, data)
}
