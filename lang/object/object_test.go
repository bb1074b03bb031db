package object_test

import (
	"testing"

	"github.com/mna/tangle/lang/object"
)

func TestObjectEmitAndSlice(t *testing.T) {
	o := object.New("m", []byte("hello world"))
	idx := o.Emit(object.MakeWrite(0, 5, 1))
	if idx != 0 {
		t.Fatalf("got index %d, want 0", idx)
	}
	idx2 := o.Emit(object.MakeRet(0, 5))
	if idx2 != 1 {
		t.Fatalf("got index %d, want 1", idx2)
	}
	if got := string(o.Slice(0, 5)); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestObjectRecordCallSite(t *testing.T) {
	o := object.New("m", nil)
	o.RecordCallSite("foo", 3)
	o.RecordCallSite("foo", 7)
	o.RecordCallSite("bar", 1)

	if got := o.Symbols["foo"]; len(got) != 2 || got[0] != 3 || got[1] != 7 {
		t.Errorf("got %v", got)
	}
	if got := o.Symbols["bar"]; len(got) != 1 || got[0] != 1 {
		t.Errorf("got %v", got)
	}
}
