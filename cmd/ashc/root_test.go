package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	assert.NoError(t, err)
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	assert.NoError(t, err)
	return buf.String()
}

func TestCompileAndRunDumpsDisassemblyWhenRequested(t *testing.T) {
	v := newVM(t.TempDir())
	out := captureStdout(t, func() {
		err := compileAndRun(v, "func add(a, b) { return a + b; } info add(1, 2);", true)
		assert.NoError(t, err)
	})
	assert.Contains(t, out, "== script ==")
	assert.Contains(t, out, "== add ==")
	assert.Contains(t, out, "3\n")
}

func TestCompileAndRunWithoutDisassemblyOnlyPrintsProgramOutput(t *testing.T) {
	v := newVM(t.TempDir())
	out := captureStdout(t, func() {
		err := compileAndRun(v, "info 1 + 1;", false)
		assert.NoError(t, err)
	})
	assert.Equal(t, "2\n", out)
}
