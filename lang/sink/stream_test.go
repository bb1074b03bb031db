package sink_test

import (
	"bytes"
	"testing"

	"github.com/mna/tangle/lang/config"
	"github.com/mna/tangle/lang/sink"
)

func TestStreamWritesTextAndNewlines(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewStream(&buf, config.Config{})

	if err := s.Write([]byte("abc"), 2); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Indent(4); err != nil {
		t.Fatalf("Indent: %v", err)
	}
	if err := s.Write([]byte("x"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "abc\n\n    x"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStreamIndentZeroIsNoop(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewStream(&buf, config.Config{})
	if err := s.Indent(0); err != nil {
		t.Fatalf("Indent: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("got %q, want empty", buf.String())
	}
}

func TestStreamFinishAppendsNewlineByDefault(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewStream(&buf, config.Config{})
	s.Write([]byte("abc"), 0)
	if err := s.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if got := buf.String(); got != "abc\n" {
		t.Errorf("got %q, want %q", got, "abc\n")
	}
}

func TestStreamFinishOmitsNewlineWhenConfigured(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewStream(&buf, config.Config{OmitTrailingNewline: true})
	s.Write([]byte("abc"), 0)
	if err := s.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if got := buf.String(); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
}
