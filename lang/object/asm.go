package object

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/tangle/lang/token"
)

// This file implements a human-readable/writable textual form of an Object,
// for constructing programs directly without going through the
// tokenizer/parser (exercised by this package's own tests) — the same role
// compiler/asm.go plays for the teacher's bytecode, reduced to tangle's
// flatter (no functions/locals/cells) instruction set.
//
// 	object: NAME
// 	text: "escaped source text"
// 	symbols:                 # optional
// 		name 0 3 7             # call-site program indices for "name"
// 	adjacent:                # optional
// 		name 0 4 1 1           # entry exit line col
// 	files:                   # optional
// 		out.txt 0 1 1          # entry line col
// 	code:                    # required
// 		write 0 3 1            # start len nl
// 		call 0 0 2             # address module indent
// 		jmp 0 1 0              # address module generation
// 		ret 0 3                # name_start name_len
// 		shell 0 0 3            # command module len

var sections = map[string]bool{
	"object:":   true,
	"text:":     true,
	"symbols:":  true,
	"adjacent:": true,
	"files:":    true,
	"code:":     true,
}

// Asm parses the textual form produced by Disasm (or hand-written
// equivalent) into an Object.
func Asm(b []byte) (*Object, error) {
	a := &asm{s: bufio.NewScanner(bytes.NewReader(b))}
	fields := a.next()

	if len(fields) < 2 || fields[0] != "object:" {
		return nil, fmt.Errorf("expected object: section, got %q", strings.Join(fields, " "))
	}
	o := New(fields[1], nil)

	fields = a.next()
	fields = a.text(o, fields)
	fields = a.symbols(o, fields)
	fields = a.adjacent(o, fields)
	fields = a.files(o, fields)
	fields = a.code(o, fields)

	if a.err == nil && len(fields) > 0 {
		a.err = fmt.Errorf("unexpected section: %s", fields[0])
	}
	return o, a.err
}

type asm struct {
	s   *bufio.Scanner
	err error
}

func (a *asm) next() []string {
	for a.err == nil && a.s.Scan() {
		line := strings.TrimSpace(a.s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.Fields(line)
	}
	if err := a.s.Err(); err != nil {
		a.err = err
	}
	return nil
}

func (a *asm) uint32(s string) uint32 {
	if a.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		a.err = fmt.Errorf("invalid uint32 %q: %w", s, err)
		return 0
	}
	return uint32(v)
}

func (a *asm) uint16(s string) uint16 {
	if a.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		a.err = fmt.Errorf("invalid uint16 %q: %w", s, err)
		return 0
	}
	return uint16(v)
}

func (a *asm) int(s string) int {
	if a.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		a.err = fmt.Errorf("invalid int %q: %w", s, err)
	}
	return v
}

func (a *asm) text(o *Object, fields []string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "text:" {
		return fields
	}
	raw := strings.TrimSpace(strings.TrimPrefix(a.s.Text(), "text:"))
	unquoted, err := strconv.Unquote(raw)
	if err != nil {
		a.err = fmt.Errorf("invalid text: line: %w", err)
		return a.next()
	}
	o.Text = []byte(unquoted)
	return a.next()
}

func (a *asm) symbols(o *Object, fields []string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "symbols:" {
		return fields
	}
	for fields = a.next(); a.err == nil && len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		name := fields[0]
		for _, f := range fields[1:] {
			o.Symbols[name] = append(o.Symbols[name], a.uint32(f))
		}
	}
	return fields
}

func (a *asm) adjacent(o *Object, fields []string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "adjacent:" {
		return fields
	}
	for fields = a.next(); a.err == nil && len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		if len(fields) != 5 {
			a.err = fmt.Errorf("adjacent entry %q: want 5 fields", strings.Join(fields, " "))
			return fields
		}
		o.Adjacent[fields[0]] = Adjacency{
			Entry:    a.uint32(fields[1]),
			Exit:     a.uint32(fields[2]),
			Location: location(a.int(fields[3]), a.int(fields[4])),
		}
	}
	return fields
}

func (a *asm) files(o *Object, fields []string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "files:" {
		return fields
	}
	for fields = a.next(); a.err == nil && len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		if len(fields) != 4 {
			a.err = fmt.Errorf("files entry %q: want 4 fields", strings.Join(fields, " "))
			return fields
		}
		o.Files[fields[0]] = FileEntry{
			Entry:    a.uint32(fields[1]),
			Location: location(a.int(fields[2]), a.int(fields[3])),
		}
	}
	return fields
}

func (a *asm) code(o *Object, fields []string) []string {
	if a.err != nil {
		return fields
	}
	if len(fields) == 0 || fields[0] != "code:" {
		a.err = fmt.Errorf("expected code: section, got %q", strings.Join(fields, " "))
		return fields
	}
	for fields = a.next(); a.err == nil && len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		op, ok := reverseOpcode[fields[0]]
		if !ok {
			a.err = fmt.Errorf("invalid opcode: %s", fields[0])
			return fields
		}
		switch op {
		case RET:
			o.Emit(MakeRet(a.uint32(fields[1]), a.uint16(fields[2])))
		case CALL:
			o.Emit(MakeCall(a.uint32(fields[1]), a.uint16(fields[2]), a.uint16(fields[3])))
		case JMP:
			o.Emit(MakeJmp(a.uint32(fields[1]), a.uint16(fields[2]), a.uint16(fields[3])))
		case WRITE:
			o.Emit(MakeWrite(a.uint32(fields[1]), a.uint16(fields[2]), a.uint16(fields[3])))
		case SHELL:
			o.Emit(MakeShell(a.uint32(fields[1]), a.uint16(fields[2]), uint8(a.uint16(fields[3]))))
		}
	}
	return fields
}

// Disasm renders o in the textual form Asm parses.
func (o *Object) Disasm() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "object: %s\n", o.Name)
	fmt.Fprintf(&b, "text: %q\n", string(o.Text))

	if len(o.Symbols) > 0 {
		fmt.Fprintf(&b, "symbols:\n")
		for name, idxs := range o.Symbols {
			fmt.Fprintf(&b, "\t%s", name)
			for _, idx := range idxs {
				fmt.Fprintf(&b, " %d", idx)
			}
			b.WriteByte('\n')
		}
	}

	if len(o.Adjacent) > 0 {
		fmt.Fprintf(&b, "adjacent:\n")
		for name, adj := range o.Adjacent {
			fmt.Fprintf(&b, "\t%s %d %d %d %d\n", name, adj.Entry, adj.Exit, adj.Location.Line, adj.Location.Column)
		}
	}

	if len(o.Files) > 0 {
		fmt.Fprintf(&b, "files:\n")
		for name, fe := range o.Files {
			fmt.Fprintf(&b, "\t%s %d %d %d\n", name, fe.Entry, fe.Location.Line, fe.Location.Column)
		}
	}

	fmt.Fprintf(&b, "code:\n")
	for _, ins := range o.Program {
		switch ins.Op {
		case RET:
			fmt.Fprintf(&b, "\tret %d %d\n", ins.NameStart(), ins.NameLen())
		case CALL:
			fmt.Fprintf(&b, "\tcall %d %d %d\n", ins.Address(), ins.Module(), ins.Indent())
		case JMP:
			fmt.Fprintf(&b, "\tjmp %d %d %d\n", ins.Address(), ins.Module(), ins.Generation())
		case WRITE:
			fmt.Fprintf(&b, "\twrite %d %d %d\n", ins.Start(), ins.Len(), ins.Nl())
		case SHELL:
			fmt.Fprintf(&b, "\tshell %d %d %d\n", ins.Command(), ins.ShellModule(), ins.ShellLen())
		}
	}
	return b.Bytes()
}

func location(line, col int) token.Location {
	return token.Location{Line: line, Column: col}
}
