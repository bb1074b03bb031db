package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
)

// Find links the given files and reports the source location of the
// object that owns --tag's procedure entry.
func (c *Cmd) Find(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := c.config()
	if err != nil {
		return printError(stdio, err)
	}
	l, err := loadAndLink(cfg, args)
	if err != nil {
		return printError(stdio, err)
	}

	entry, ok := l.Procedure(c.Tag)
	if !ok {
		return printError(stdio, fmt.Errorf("find: unknown tag %q", c.Tag))
	}
	obj, ok := objectLocation(l, c.Tag)
	if !ok {
		return printError(stdio, fmt.Errorf("find: tag %q resolved but its owning object could not be located", c.Tag))
	}
	fmt.Fprintf(stdio.Stdout, "%s:%d:%d\n", obj.Name, entry.Location.Line, entry.Location.Column)
	return nil
}
