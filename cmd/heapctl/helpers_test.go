package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// traceDir returns the trace testdata shipped with heap/trace.
func traceDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join("..", "..", "heap", "trace", "testdata")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("trace testdata not found: %s", dir)
	}
	return dir
}

// resetFlags restores every global flag to its default.
func resetFlags() {
	verbose, quiet, jsonOut = false, false, false
	classesOpt = "PowerOfTwo"
	runValidate, runMaxHeap, runChunk, runImage, runStats = false, 0, 0, "", false
	dumpFreeOnly = false
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	out := <-done
	r.Close()

	return string(out), fnErr
}
