package object

import "github.com/mna/tangle/lang/token"

// Adjacency is the parser's per-block record of a tag's chain segment
// within one Object: the program index of its first and last instruction,
// and the source location of its header (for error reporting).
type Adjacency struct {
	Entry, Exit uint32
	Location    token.Location
}

// FileEntry is the parser's record of an output-file target: the program
// index of the block's first instruction, and the header's source
// location.
type FileEntry struct {
	Entry    uint32
	Location token.Location
}

// Object is one parsed input document: its raw text, the flat program the
// parser emitted from it, and the three tables (spec.md §3) the linker
// consumes: symbols (name -> call-site indices), adjacent (tag name ->
// chain-segment bounds), files (output name -> entry).
type Object struct {
	Name    string
	Text    []byte
	Program []Instruction

	// Symbols maps a placeholder name to every program index holding a call
	// instruction referencing it. Populated by the parser, consumed by the
	// linker's updateProcedureCalls step.
	Symbols map[string][]uint32

	// Adjacent maps a tag name to its chain-segment bounds within this
	// Object. Built once per parse; never rebuilt, so it is a plain map
	// even though the linker's global tables built from many Objects use a
	// different one.
	Adjacent map[string]Adjacency

	// Files maps an output-file name to its entry point within this Object.
	Files map[string]FileEntry
}

// New returns an empty Object ready for the parser to emit into.
func New(name string, text []byte) *Object {
	return &Object{
		Name:     name,
		Text:     text,
		Symbols:  make(map[string][]uint32),
		Adjacent: make(map[string]Adjacency),
		Files:    make(map[string]FileEntry),
	}
}

// Emit appends ins to the program and returns its index.
func (o *Object) Emit(ins Instruction) uint32 {
	idx := uint32(len(o.Program))
	o.Program = append(o.Program, ins)
	return idx
}

// RecordCallSite registers idx (which must hold a call instruction
// referencing name) in the symbol table, for later resolution by the
// linker.
func (o *Object) RecordCallSite(name string, idx uint32) {
	o.Symbols[name] = append(o.Symbols[name], idx)
}

// Slice slices the object's source text, for write/ret instruction payloads.
func (o *Object) Slice(start uint32, length uint16) []byte {
	return o.Text[start : start+uint32(length)]
}
