package maincmd

import (
	"fmt"
	"os"

	"github.com/mna/tangle/lang/config"
	"github.com/mna/tangle/lang/linker"
	"github.com/mna/tangle/lang/object"
	"github.com/mna/tangle/lang/parser"
)

// loadAndLink reads and parses every path into an Object, adds each to a
// fresh Linker in argument order (link order is significant: spec.md
// §4.3's tie-breaking for repeated tag names follows the order objects
// were added), and links them. It is the one place every command funnels
// through, mirroring the teacher's one-shared-helper-per-pipeline-stage
// convention.
func loadAndLink(cfg config.Config, paths []string) (*linker.Linker, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one file must be provided")
	}

	l := linker.New()
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		obj, err := parser.Parse(cfg, p, src)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		l.Add(obj)
	}
	if err := l.Link(); err != nil {
		return nil, err
	}
	return l, nil
}

// objectLocation returns the first of l's objects whose Adjacent or Files
// table records name, for the `find` command. It walks objects in link
// order so the returned object is the same one Link itself treated as the
// procedure's owning segment (spec.md §4.3 step 3).
func objectLocation(l *linker.Linker, name string) (*object.Object, bool) {
	for _, obj := range l.Objects() {
		if _, ok := obj.Adjacent[name]; ok {
			return obj, true
		}
		if _, ok := obj.Files[name]; ok {
			return obj, true
		}
	}
	return nil, false
}
