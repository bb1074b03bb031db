package maincmd_test

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"

	"github.com/mna/tangle/internal/filetest"
	"github.com/mna/tangle/internal/maincmd"
)

var testUpdateCallTests = flag.Bool("test.update-call-tests", false, "If set, replace expected call-command golden output with actual results.")

// TestCall drives the call command's full stack (parse -> link -> interp ->
// sink.Stream) against each testdata/in source document and diffs its
// stdout/stderr against the matching testdata/out golden files.
func TestCall(t *testing.T) {
	ctx := context.Background()
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".tangle") {
		t.Run(fi.Name(), func(t *testing.T) {
			var buf, ebuf bytes.Buffer
			stdio := mainer.Stdio{Stdout: &buf, Stderr: &ebuf}

			c := &maincmd.Cmd{Tag: "greet"}
			// Call already prints any error to stdio.Stderr via printError.
			_ = c.Call(ctx, stdio, []string{filepath.Join(srcDir, fi.Name())})
			filetest.DiffOutput(t, fi, buf.String(), resultDir, testUpdateCallTests)
			filetest.DiffErrors(t, fi, ebuf.String(), resultDir, testUpdateCallTests)
		})
	}
}
