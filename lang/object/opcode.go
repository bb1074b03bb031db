// Package object implements the tangle engine's instruction and Object data
// model: the flat bytecode program a parsed document lowers to, its symbol/
// adjacency/file tables, and a human-readable assembler/disassembler form
// that builds programs without going through the full tokenizer/parser
// pipeline.
package object

import "fmt"

// Opcode identifies one of the five tangle-engine instructions (spec.md
// §3). Unlike the teacher's ~40-opcode general-purpose bytecode, this set
// is closed and will not grow: tangle has no expressions to compile, only
// text spans, call/return/jump control flow, and the reserved shell filter.
type Opcode uint8

const ( //nolint:revive
	RET Opcode = iota
	CALL
	JMP
	WRITE
	SHELL

	maxOpcode
)

func (op Opcode) String() string { return opcodeNames[op] }

var opcodeNames = [...]string{
	RET:   "ret",
	CALL:  "call",
	JMP:   "jmp",
	WRITE: "write",
	SHELL: "shell",
}

// reverseOpcode supports the assembler's textual form (Asm).
var reverseOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, maxOpcode)
	for op := Opcode(0); op < maxOpcode; op++ {
		m[opcodeNames[op]] = op
	}
	return m
}()

// Instruction is the fixed-width (opcode + 8-byte payload) unit of a
// program. The payload is a set of generic fields (A a 32-bit value, B and
// C 16-bit values); opcode-specific accessor methods below give them their
// spec.md names so call sites read naturally instead of as raw field
// indices — e.g. a call instruction's target is ins.Address()/ins.Module(),
// not ins.A/ins.B.
type Instruction struct {
	Op Opcode
	A  uint32
	B  uint16
	C  uint16
}

func (i Instruction) String() string {
	switch i.Op {
	case RET:
		return fmt.Sprintf("ret name_start=%d name_len=%d", i.NameStart(), i.NameLen())
	case CALL:
		return fmt.Sprintf("call address=%d module=%d indent=%d", i.Address(), i.Module(), i.Indent())
	case JMP:
		return fmt.Sprintf("jmp address=%d module=%d generation=%d", i.Address(), i.Module(), i.Generation())
	case WRITE:
		return fmt.Sprintf("write start=%d len=%d nl=%d", i.Start(), i.Len(), i.Nl())
	case SHELL:
		return fmt.Sprintf("shell command=%d module=%d len=%d", i.Command(), i.ShellModule(), i.ShellLen())
	default:
		return fmt.Sprintf("<illegal opcode %d>", i.Op)
	}
}

// -- ret --

func MakeRet(nameStart uint32, nameLen uint16) Instruction {
	return Instruction{Op: RET, A: nameStart, B: nameLen}
}
func (i Instruction) NameStart() uint32 { return i.A }
func (i Instruction) NameLen() uint16   { return i.B }

// -- call --

func MakeCall(address uint32, module, indent uint16) Instruction {
	return Instruction{Op: CALL, A: address, B: module, C: indent}
}
func (i Instruction) Address() uint32 { return i.A }
func (i Instruction) Module() uint16  { return i.B }
func (i Instruction) Indent() uint16  { return i.C }

func (i *Instruction) SetAddress(address uint32) { i.A = address }
func (i *Instruction) SetModule(module uint16)    { i.B = module }

// -- jmp --

func MakeJmp(address uint32, module, generation uint16) Instruction {
	return Instruction{Op: JMP, A: address, B: module, C: generation}
}
func (i Instruction) Generation() uint16 { return i.C }

func (i *Instruction) SetGeneration(gen uint16) { i.C = gen }

// -- write --

func MakeWrite(start uint32, length, nl uint16) Instruction {
	return Instruction{Op: WRITE, A: start, B: length, C: nl}
}
func (i Instruction) Start() uint32 { return i.A }
func (i Instruction) Len() uint16   { return i.B }
func (i Instruction) Nl() uint16    { return i.C }

// -- shell --
//
// shell packs { command: u32, module: u16, len: u8 } into the same A/B/C
// slots as the other opcodes (C's low byte holds len; the spec's _pad byte
// is simply left unused, as Go has no packed-byte-pair field to name it).

func MakeShell(command uint32, module uint16, length uint8) Instruction {
	return Instruction{Op: SHELL, A: command, B: module, C: uint16(length)}
}
func (i Instruction) Command() uint32    { return i.A }
func (i Instruction) ShellModule() uint16 { return i.B }
func (i Instruction) ShellLen() uint8     { return uint8(i.C) }
