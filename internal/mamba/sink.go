// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// stderrTailBytes is how much trailing stderr a CommandError keeps.
const stderrTailBytes = 4 << 10

// Sink is where one output stream of the child goes. The zero value captures
// into memory.
type Sink struct {
	path string
}

// Capture returns the in-memory sink.
func Capture() Sink { return Sink{} }

// File returns a sink that truncates and writes path.
func File(path string) Sink { return Sink{path: path} }

// Path is the target file, or "" for capture.
func (s Sink) Path() string { return s.path }

// IsCapture reports whether output is kept in memory.
func (s Sink) IsCapture() bool { return s.path == "" }

// String describes the sink for logs.
func (s Sink) String() string {
	if s.IsCapture() {
		return "capture"
	}
	return "file:" + s.path
}

// sameFile reports whether both sinks write the same file.
func (s Sink) sameFile(o Sink) bool {
	if s.IsCapture() || o.IsCapture() {
		return false
	}
	return absPath(s.path) == absPath(o.path)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// open returns the writer for the sink, the capture buffer (nil for files),
// and a close function.
func (s Sink) open() (io.Writer, *bytes.Buffer, func() error, error) {
	if s.IsCapture() {
		buf := &bytes.Buffer{}
		return buf, buf, func() error { return nil }, nil
	}
	f, err := os.Create(s.path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening output file: %w", err)
	}
	return f, nil, f.Close, nil
}

// tailBuffer keeps the last n bytes written to it.
type tailBuffer struct {
	n   int
	buf []byte
}

func newTailBuffer(n int) *tailBuffer { return &tailBuffer{n: n} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.n; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
