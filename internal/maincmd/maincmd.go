// Package maincmd implements the tangle CLI's command dispatch: flag
// parsing and subcommand routing are handled here; every command body
// delegates straight into lang/parser, lang/linker, lang/interp, and
// lang/sink for the actual tangle semantics (spec.md §6's external
// interface is explicitly a thin collaborator over the core engine, not
// part of its tested semantics).
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"

	"github.com/mna/tangle/lang/config"
)

const binName = "tangle"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...]
       %[1]s -h|--help
       %[1]s -v|--version

Tangle engine for literate-programming documents.

The <command> can be one of:
       tangle                    Link the given documents and write every
                                  declared output file.
       ls                        List the linked output files (default)
                                  or tag names (--list-tags).
       call                      Tangle a single file or tag to stdout.
       find                      Report the source location of a tag.
       graph                     Render the call graph of a file or tag
                                  in a DOT-like format.
       init                      Write a starter tangle.yaml config.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --allow-absolute-paths    Permit file: targets starting with / or ~.
       --omit-trailing-newline   Don't append a trailing newline to output.
       --delimiter=NAME          Override every block's esc: spec (one of
                                  ignore, chevron, brace, bracket, paren).

Valid flag options for the <ls> command are:
       --list-files              List output file names (default).
       --list-tags               List tag names instead.

Valid flag options for the <call> and <graph> commands are:
       --file=PATH                Select an output file target.
       --tag=NAME                 Select a tag target.

Valid flag options for the <init> command are:
       --stdin                    Write the starter config to stdout
                                   instead of tangle.yaml.

More information on the %[1]s repository:
       https://github.com/mna/tangle
`, binName)
)

// Cmd is the CLI's flag-bound command state, dispatched by buildCmds to
// the matching exported method below (one file per command, mirroring the
// teacher's one-file-per-command convention).
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	AllowAbsolutePaths  bool   `flag:"allow-absolute-paths"`
	OmitTrailingNewline bool   `flag:"omit-trailing-newline"`
	Delimiter           string `flag:"delimiter"`

	ListFiles bool `flag:"list-files"`
	ListTags  bool `flag:"list-tags"`

	File string `flag:"file"`
	Tag  string `flag:"tag"`

	Stdin bool `flag:"stdin"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	switch cmdName {
	case "tangle", "ls":
		if len(c.args[1:]) == 0 && cmdName == "tangle" {
			return fmt.Errorf("%s: at least one file must be provided", cmdName)
		}
	case "call", "graph":
		if c.File == "" && c.Tag == "" {
			return fmt.Errorf("%s: one of --file or --tag is required", cmdName)
		}
		if c.File != "" && c.Tag != "" {
			return fmt.Errorf("%s: --file and --tag are mutually exclusive", cmdName)
		}
	case "find":
		if c.Tag == "" {
			return fmt.Errorf("%s: --tag is required", cmdName)
		}
	}

	if c.Delimiter != "" {
		d := config.Delimiter(c.Delimiter)
		if _, _, ok := d.OpenClose(); !ok {
			return fmt.Errorf("invalid --delimiter: %s", c.Delimiter)
		}
	}

	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   true,
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		// each command takes care of printing its errors, just return with an error code
		return mainer.Failure
	}
	return mainer.Success
}

// config builds this invocation's layered Config (spec.md §4.6): CLI
// flags over TANGLE_* environment variables. A project tangle.yaml, if
// present in the working directory, is the lowest-precedence layer.
func (c *Cmd) config() (config.Config, error) {
	cfg, err := config.Load("tangle.yaml")
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	override := config.Config{
		AllowAbsolutePaths:  c.AllowAbsolutePaths,
		OmitTrailingNewline: c.OmitTrailingNewline,
		Delimiter:           config.Delimiter(c.Delimiter),
	}
	return cfg.Merge(override), nil
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
