// Package sink implements the tangle engine's two built-in interp.Sink
// kinds (spec.md §4.5): Stream, which writes tangled output verbatim to a
// byte sink, and Graph, a presentation sink that records the call tree for
// rendering as a dependency graph. Both only implement the capabilities
// they actually need; the interpreter probes for the rest via type
// assertion, per lang/interp's capability-probing contract.
package sink

import (
	"bytes"
	"io"

	"github.com/mna/tangle/lang/config"
	"github.com/mna/tangle/lang/interp"
)

var (
	_ interp.Sink = (*Stream)(nil)
)

// Stream writes a tangled file's output verbatim to an underlying
// io.Writer, honoring the omit_trailing_newline knob (spec.md §4.6) on
// Finish.
type Stream struct {
	w                   io.Writer
	omitTrailingNewline bool
}

// NewStream returns a Stream sink writing to w, configured per cfg.
func NewStream(w io.Writer, cfg config.Config) *Stream {
	return &Stream{w: w, omitTrailingNewline: cfg.OmitTrailingNewline}
}

// Write emits text verbatim, followed by nl newlines (spec.md §4.5).
func (s *Stream) Write(text []byte, nl uint16) error {
	if len(text) > 0 {
		if _, err := s.w.Write(text); err != nil {
			return err
		}
	}
	for i := uint16(0); i < nl; i++ {
		if _, err := s.w.Write(newline); err != nil {
			return err
		}
	}
	return nil
}

var newline = []byte{'\n'}

// Indent emits n spaces (spec.md §4.5: "indent writes interp.indent
// spaces").
func (s *Stream) Indent(n uint16) error {
	if n == 0 {
		return nil
	}
	_, err := s.w.Write(bytes.Repeat([]byte{' '}, int(n)))
	return err
}

// Finish writes the file's trailing newline, unless the sink was
// configured to omit it. Callers invoke Finish once after driving a
// complete call_file to completion.
func (s *Stream) Finish() error {
	if s.omitTrailingNewline {
		return nil
	}
	_, err := s.w.Write(newline)
	return err
}
