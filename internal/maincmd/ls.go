package maincmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/mna/mainer"
)

// Ls links the given files and lists either the declared output file
// names (default) or the declared tag names (--list-tags).
func (c *Cmd) Ls(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := c.config()
	if err != nil {
		return printError(stdio, err)
	}
	l, err := loadAndLink(cfg, args)
	if err != nil {
		return printError(stdio, err)
	}

	var names []string
	if c.ListTags {
		names = l.TagNames()
	} else {
		names = l.FileNames()
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(stdio.Stdout, name)
	}
	return nil
}
