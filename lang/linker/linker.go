// Package linker implements the tangle engine's cross-object resolution
// pass (spec.md §4.3): it owns an ordered list of parsed Objects and, on
// Link, rebuilds the global procedure and file tables, threads same-named
// tag segments across objects via jump-merging, patches every call site's
// target, and verifies every referenced symbol resolves.
package linker

import (
	"errors"
	"sort"

	"github.com/dolthub/swiss"

	"github.com/mna/tangle/lang/object"
	"github.com/mna/tangle/lang/token"
)

// Entry is a resolved procedure or file target: the module (1-based index
// into the linker's object list) and the program address within it.
type Entry struct {
	Address  uint32
	Module   uint16
	Location token.Location
}

type procEntry struct {
	entry    uint32
	module   uint16
	location token.Location
}

type fileEntry struct {
	entry    uint32
	module   uint16
	location token.Location
}

// Linker holds the ordered object list and the tables rebuilt by Link.
// Object insertion order is significant: it determines which segment of a
// repeated tag owns the procedure entry, and the direction adjacency
// merging threads in (spec.md §4.3's "tie-breaking").
type Linker struct {
	objects    []*object.Object
	generation uint16
	procedures *swiss.Map[string, procEntry]
	files      *swiss.Map[string, fileEntry]
}

// New returns an empty Linker ready to accept objects.
func New() *Linker {
	return &Linker{
		procedures: swiss.NewMap[string, procEntry](0),
		files:      swiss.NewMap[string, fileEntry](0),
	}
}

// Add appends obj to the linker's object list. Objects are 1-based modules
// in link order: the first Add gets module 1.
func (l *Linker) Add(obj *object.Object) {
	l.objects = append(l.objects, obj)
}

// Objects returns the linker's object list, indexed by module-1.
func (l *Linker) Objects() []*object.Object { return l.objects }

// Object returns the object for 1-based module index m.
func (l *Linker) Object(module uint16) *object.Object {
	return l.objects[module-1]
}

// Link executes the seven-step linking procedure (spec.md §4.3). It may be
// called any number of times as objects are added or reparsed; each call
// rebuilds the procedure and file tables from scratch and bumps the
// generation counter used to detect stale jmp instructions.
func (l *Linker) Link() error {
	l.generation++
	l.procedures = swiss.NewMap[string, procEntry](uint32(len(l.objects)))
	l.files = swiss.NewMap[string, fileEntry](uint32(len(l.objects)))

	l.buildProcedureTable()
	if err := l.buildFileTable(); err != nil {
		return err
	}
	l.mergeAdjacent()
	l.updateProcedureCalls()
	return l.verify()
}

// buildProcedureTable walks objects in insertion order; the first object to
// declare a tag name owns its procedure entry (spec.md §4.3 step 3).
func (l *Linker) buildProcedureTable() {
	for i, m := range l.objects {
		module := uint16(i + 1)
		for name, adj := range m.Adjacent {
			if _, ok := l.procedures.Get(name); ok {
				continue
			}
			l.procedures.Put(name, procEntry{entry: adj.Entry, module: module, location: adj.Location})
		}
	}
}

// buildFileTable rejects a file name declared by more than one object
// (spec.md §4.3 step 4; S6).
func (l *Linker) buildFileTable() error {
	for i, m := range l.objects {
		module := uint16(i + 1)
		for name, fe := range m.Files {
			if _, ok := l.files.Get(name); ok {
				return &Error{Kind: ErrMultipleFilesSameName, Name: name}
			}
			l.files.Put(name, fileEntry{entry: fe.Entry, module: module, location: fe.Location})
		}
	}
	return nil
}

// mergeAdjacent threads every chain of same-named tag segments across
// objects in insertion order (spec.md §4.3 step 5). A segment whose exit is
// already a jmp of the current generation was installed as a middle link by
// an earlier iteration of this same pass and is skipped, so each chain is
// threaded exactly once per Link call.
func (l *Linker) mergeAdjacent() {
	for i, m := range l.objects {
		for name, adj := range m.Adjacent {
			exit := m.Program[adj.Exit]
			if exit.Op == object.JMP && exit.Generation() == l.generation {
				continue
			}

			prevObj, prevExit := m, adj.Exit
			for j := i + 1; j < len(l.objects); j++ {
				n := l.objects[j]
				nAdj, ok := n.Adjacent[name]
				if !ok {
					continue
				}
				prevObj.Program[prevExit] = object.MakeJmp(nAdj.Entry, uint16(j+1), l.generation)
				prevObj, prevExit = n, nAdj.Exit
			}
		}
	}
}

// updateProcedureCalls patches every call site's target from the resolved
// procedure table (spec.md §4.3 step 6). Calls to a name with no procedure
// entry are left unpatched; verify reports them.
func (l *Linker) updateProcedureCalls() {
	for _, m := range l.objects {
		for name, sites := range m.Symbols {
			entry, ok := l.procedures.Get(name)
			if !ok {
				continue
			}
			for _, idx := range sites {
				ins := &m.Program[idx]
				ins.SetAddress(entry.entry)
				ins.SetModule(entry.module)
			}
		}
	}
}

// verify requires every call-site symbol to resolve, aggregating every
// distinct missing name into a single error (spec.md §4.3 step 7; §7's
// "aggregated Unknown symbol report").
func (l *Linker) verify() error {
	seen := make(map[string]bool)
	var missing []string
	for _, m := range l.objects {
		for name := range m.Symbols {
			if seen[name] {
				continue
			}
			if _, ok := l.procedures.Get(name); !ok {
				seen[name] = true
				missing = append(missing, name)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	errs := make([]error, len(missing))
	for i, name := range missing {
		errs[i] = &Error{Kind: ErrUnknownSymbol, Name: name}
	}
	return errors.Join(errs...)
}

// Procedure resolves a tag name to its linked entry point.
func (l *Linker) Procedure(name string) (Entry, bool) {
	e, ok := l.procedures.Get(name)
	if !ok {
		return Entry{}, false
	}
	return Entry{Address: e.entry, Module: e.module, Location: e.location}, true
}

// File resolves an output-file name to its linked entry point.
func (l *Linker) File(name string) (Entry, bool) {
	e, ok := l.files.Get(name)
	if !ok {
		return Entry{}, false
	}
	return Entry{Address: e.entry, Module: e.module, Location: e.location}, true
}

// FileNames returns every linked output-file name, for the `ls
// --list-files` collaborator (spec.md §6). Order is unspecified; callers
// that need a stable order should sort.
func (l *Linker) FileNames() []string {
	names := make([]string, 0, l.files.Count())
	l.files.Iter(func(k string, _ fileEntry) bool {
		names = append(names, k)
		return false
	})
	return names
}

// TagNames returns every linked procedure (tag) name, for the `ls
// --list-tags` collaborator.
func (l *Linker) TagNames() []string {
	names := make([]string, 0, l.procedures.Count())
	l.procedures.Iter(func(k string, _ procEntry) bool {
		names = append(names, k)
		return false
	})
	return names
}
