package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const starterConfig = `# delimiter overrides every block's esc: spec when set, one of: ignore,
# chevron, brace, bracket, paren. Leave unset to honor each block's own
# esc: line.
delimiter: ""

# allow_absolute_paths permits a file: target whose path starts with / or ~.
allow_absolute_paths: false

# omit_trailing_newline drops the trailing newline tangle would otherwise
# append to each output file and to call's stdout output.
omit_trailing_newline: false
`

// Init writes a starter tangle.yaml config to the current directory, or to
// stdout with --stdin.
func (c *Cmd) Init(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if c.Stdin {
		fmt.Fprint(stdio.Stdout, starterConfig)
		return nil
	}

	const path = "tangle.yaml"
	if _, err := os.Stat(path); err == nil {
		return printError(stdio, fmt.Errorf("init: %s already exists", path))
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return printError(stdio, fmt.Errorf("write %s: %w", path, err))
	}
	fmt.Fprintln(stdio.Stdout, path)
	return nil
}
