package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mna/mainer"

	"github.com/mna/tangle/lang/config"
	"github.com/mna/tangle/lang/interp"
	"github.com/mna/tangle/lang/sink"
)

// Tangle links the given files and writes every declared output file to
// disk, relative to the current working directory.
func (c *Cmd) Tangle(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := c.config()
	if err != nil {
		return printError(stdio, err)
	}
	l, err := loadAndLink(cfg, args)
	if err != nil {
		return printError(stdio, err)
	}

	names := l.FileNames()
	sort.Strings(names)
	it := interp.New(l)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return printError(stdio, err)
		}
		if err := tangleOneFile(it, cfg, name); err != nil {
			return printError(stdio, err)
		}
		fmt.Fprintln(stdio.Stdout, name)
	}
	return nil
}

// tangleOneFile runs name's linked file entry through it and a Stream sink
// writing to a freshly created file named after the linked file target,
// creating its parent directories first.
func tangleOneFile(it *interp.Interpreter, cfg config.Config, name string) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	s := sink.NewStream(w, cfg)
	if err := it.CallFile(name, s); err != nil {
		return err
	}
	if err := s.Finish(); err != nil {
		return err
	}
	return w.Flush()
}
