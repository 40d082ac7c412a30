// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSink_Capture(t *testing.T) {
	t.Parallel()

	s := Capture()
	if !s.IsCapture() || s.String() != "capture" {
		t.Fatalf("Capture() = %v", s)
	}
	w, buf, closeFn, err := s.open()
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("hello"))
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "hello" {
		t.Errorf("buffer = %q", buf.String())
	}
}

func TestSink_FileTruncates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte("old content that is long"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := File(path)
	if s.IsCapture() || s.Path() != path || !strings.HasPrefix(s.String(), "file:") {
		t.Fatalf("File() = %v", s)
	}
	w, buf, closeFn, err := s.open()
	if err != nil {
		t.Fatal(err)
	}
	if buf != nil {
		t.Error("file sink returned a capture buffer")
	}
	_, _ = w.Write([]byte("new"))
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("file = %q, want %q", data, "new")
	}
}

func TestSink_FileInMissingDir(t *testing.T) {
	t.Parallel()

	_, _, _, err := File(filepath.Join(t.TempDir(), "no", "such", "out.txt")).open()
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestSink_SameFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "log.txt")

	tests := []struct {
		name string
		a, b Sink
		want bool
	}{
		{"identical paths", File(out), File(out), true},
		{"uncleaned path", File(out), File(filepath.Join(dir, ".", "sub", "..", "log.txt")), true},
		{"different files", File(out), File(filepath.Join(dir, "other.txt")), false},
		{"capture", Capture(), Capture(), false},
		{"capture and file", Capture(), File(out), false},
	}
	for _, tt := range tests {
		if got := tt.a.sameFile(tt.b); got != tt.want {
			t.Errorf("%s: sameFile = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTailBuffer(t *testing.T) {
	t.Parallel()

	tb := newTailBuffer(5)
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defgh"))
	if got := tb.String(); got != "defgh" {
		t.Errorf("tail = %q, want %q", got, "defgh")
	}
}
