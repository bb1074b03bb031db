package maincmd

import (
	"context"

	"github.com/mna/mainer"

	"github.com/mna/tangle/lang/interp"
	"github.com/mna/tangle/lang/sink"
)

// Graph links the given files and renders the call graph rooted at a file
// or tag target in a DOT-like digraph format (spec.md §4.5's Graph sink).
func (c *Cmd) Graph(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := c.config()
	if err != nil {
		return printError(stdio, err)
	}
	l, err := loadAndLink(cfg, args)
	if err != nil {
		return printError(stdio, err)
	}

	it := interp.New(l)
	g := sink.NewGraph()

	var callErr error
	if c.Tag != "" {
		callErr = it.CallTag(c.Tag, g)
	} else {
		callErr = it.CallFile(c.File, g)
	}
	if callErr != nil {
		return printError(stdio, callErr)
	}
	if err := g.Render(stdio.Stdout); err != nil {
		return printError(stdio, err)
	}
	return nil
}
