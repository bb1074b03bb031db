// Package interp implements the tangle engine's single-threaded stack
// machine (spec.md §4.4): it drives a linked program instruction by
// instruction, threading calls and jumps across modules, and reports every
// write/call/return event to a pluggable Sink.
package interp

import (
	"fmt"

	"github.com/mna/tangle/lang/linker"
	"github.com/mna/tangle/lang/object"
)

// Sink is the capability set every sink must implement (spec.md §4.5):
// emit a literal text span followed by nl newlines, and emit the live
// indent as spaces. Any other observer hook is optional and probed via a
// type assertion before each call (CallSink, RetSink, JmpSink,
// TerminateSink, ShellSink below) — a sink that doesn't implement one is
// silently skipped, never an error.
type Sink interface {
	Write(text []byte, nl uint16) error
	Indent(n uint16) error
}

// CallSink is probed on every call instruction, after the frame push.
type CallSink interface {
	Call() error
}

// RetSink is probed on every ret that pops a frame (not the final,
// stack-emptying ret — see TerminateSink for that one).
type RetSink interface {
	Ret(name string) error
}

// JmpSink is probed on every jmp, after the sink's mandatory newline write.
type JmpSink interface {
	Jmp(address uint32) error
}

// TerminateSink is probed on the ret that empties the call stack: the end
// of the whole call_tag/call_file invocation.
type TerminateSink interface {
	Terminate(name string) error
}

// ShellSink is probed before the interpreter fails a shell instruction,
// giving a sink the chance to observe it was reached even though execution
// cannot proceed past it.
type ShellSink interface {
	Shell() error
}

// frame is a pushed call-site record. It is keyed in Interpreter.inStack by
// the call instruction's own (module, ip) — the "call-site ip" of spec.md's
// Design Notes, extended with the module since a bare ip is only unique
// within one object's program: two different objects both have an
// instruction at ip 0, and conflating them would report a cycle between
// call sites that never actually nest. ip holds the resume address for the
// *caller*, already advanced past the call instruction, so restoring it on
// ret continues execution rather than re-entering the call.
type frame struct {
	callSite uint64
	ip       uint32
	module   uint16
	indent   uint16
}

// callKey packs a (module, ip) pair into the single key inStack and frame
// use to identify a call site.
func callKey(module uint16, ip uint32) uint64 {
	return uint64(module)<<32 | uint64(ip)
}

// Interpreter is a reusable stack machine bound to a Linker. A single
// Interpreter value may drive many call_tag/call_file invocations in
// sequence (each resets all execution state); it must not be used
// concurrently from more than one goroutine, matching spec.md §5's
// single-threaded, synchronous execution model.
type Interpreter struct {
	// MaxSteps is the maximum number of step calls before execution is
	// cancelled with ErrStepLimit. A value <= 0 means no limit. This guards
	// against a hand-edited or otherwise corrupt linked program whose
	// jmp-only cycle evades cycle detection, which is defined over the call
	// relation only (spec.md P5).
	MaxSteps int

	linker *linker.Linker

	module uint16
	ip     uint32

	callStack []frame
	inStack   map[uint64]bool

	indent        uint16
	shouldIndent  bool
	lastIsNewline bool

	steps, maxSteps uint64
}

// New returns an Interpreter bound to l. l may be relinked any number of
// times between invocations; the Interpreter borrows it but never mutates
// it.
func New(l *linker.Linker) *Interpreter {
	return &Interpreter{linker: l}
}

// CallTag resolves name in the linker's procedure table and drives
// execution to completion, reporting every event to sink.
func (it *Interpreter) CallTag(name string, sink Sink) error {
	entry, ok := it.linker.Procedure(name)
	if !ok {
		return &Error{Kind: ErrUnknownProcedure, Name: name}
	}
	return it.call(entry, sink)
}

// CallFile resolves name in the linker's file table and drives execution
// to completion, reporting every event to sink.
func (it *Interpreter) CallFile(name string, sink Sink) error {
	entry, ok := it.linker.File(name)
	if !ok {
		return &Error{Kind: ErrUnknownFile, Name: name}
	}
	return it.call(entry, sink)
}

func (it *Interpreter) call(entry linker.Entry, sink Sink) error {
	it.module = entry.Module
	it.ip = entry.Address
	it.indent = 0
	it.shouldIndent = false
	it.lastIsNewline = false
	it.callStack = it.callStack[:0]
	it.inStack = make(map[uint64]bool)
	it.steps = 0
	if it.MaxSteps > 0 {
		it.maxSteps = uint64(it.MaxSteps)
	} else {
		it.maxSteps = 0
	}

	for {
		cont, err := it.step(sink)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// step executes one instruction and reports whether execution continues.
// It returns false, nil exactly once: on the ret that empties the call
// stack (program termination).
func (it *Interpreter) step(sink Sink) (bool, error) {
	it.steps++
	if it.maxSteps > 0 && it.steps > it.maxSteps {
		return false, &Error{Kind: ErrStepLimit}
	}

	obj := it.linker.Object(it.module)
	ip := it.ip
	ins := obj.Program[ip]
	it.ip = ip + 1 // pre-advance; call/jmp below overwrite it as needed

	switch ins.Op {
	case object.RET:
		name := string(obj.Slice(ins.NameStart(), ins.NameLen()))
		if len(it.callStack) == 0 {
			if s, ok := sink.(TerminateSink); ok {
				if err := s.Terminate(name); err != nil {
					return false, err
				}
			}
			return false, nil
		}
		fr := it.callStack[len(it.callStack)-1]
		it.callStack = it.callStack[:len(it.callStack)-1]
		delete(it.inStack, fr.callSite)
		it.ip = fr.ip
		it.module = fr.module
		it.indent -= fr.indent
		if s, ok := sink.(RetSink); ok {
			if err := s.Ret(name); err != nil {
				return false, err
			}
		}
		return true, nil

	case object.CALL:
		key := callKey(it.module, ip)
		if it.inStack[key] {
			return false, &Error{Kind: ErrCyclicReference}
		}
		it.inStack[key] = true
		it.callStack = append(it.callStack, frame{
			callSite: key,
			ip:       it.ip,
			module:   it.module,
			indent:   ins.Indent(),
		})
		it.indent += ins.Indent()
		it.ip = ins.Address()
		if ins.Module() != 0 {
			it.module = ins.Module()
		}
		if s, ok := sink.(CallSink); ok {
			if err := s.Call(); err != nil {
				return false, err
			}
		}
		return true, nil

	case object.JMP:
		if ins.Module() != 0 {
			it.module = ins.Module()
		}
		it.ip = ins.Address()
		if err := sink.Write([]byte("\n"), 0); err != nil {
			return false, err
		}
		it.lastIsNewline = true
		if s, ok := sink.(JmpSink); ok {
			if err := s.Jmp(ins.Address()); err != nil {
				return false, err
			}
		}
		return true, nil

	case object.WRITE:
		if it.shouldIndent && it.lastIsNewline {
			if err := sink.Indent(it.indent); err != nil {
				return false, err
			}
		} else {
			it.shouldIndent = true
		}
		text := obj.Slice(ins.Start(), ins.Len())
		if err := sink.Write(text, ins.Nl()); err != nil {
			return false, err
		}
		it.lastIsNewline = ins.Nl() != 0
		return true, nil

	case object.SHELL:
		if s, ok := sink.(ShellSink); ok {
			if err := s.Shell(); err != nil {
				return false, err
			}
		}
		return false, &Error{Kind: ErrShellUnimplemented}

	default:
		panic(fmt.Sprintf("interp: illegal opcode %d", ins.Op))
	}
}
