package maincmd

import (
	"context"

	"github.com/mna/mainer"

	"github.com/mna/tangle/lang/interp"
	"github.com/mna/tangle/lang/sink"
)

// Call links the given files and tangles a single file or tag target to
// stdout, for quick inspection without writing to disk.
func (c *Cmd) Call(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := c.config()
	if err != nil {
		return printError(stdio, err)
	}
	l, err := loadAndLink(cfg, args)
	if err != nil {
		return printError(stdio, err)
	}

	it := interp.New(l)
	s := sink.NewStream(stdio.Stdout, cfg)

	var callErr error
	if c.Tag != "" {
		callErr = it.CallTag(c.Tag, s)
	} else {
		callErr = it.CallFile(c.File, s)
	}
	if callErr != nil {
		return printError(stdio, callErr)
	}
	if err := s.Finish(); err != nil {
		return printError(stdio, err)
	}
	return nil
}
