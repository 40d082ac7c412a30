// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseChecksum(t *testing.T) {
	t.Parallel()

	hash := strings.Repeat("ab", 32)
	other := strings.Repeat("cd", 32)

	tests := []struct {
		name    string
		input   string
		asset   string
		want    string
		wantErr error
	}{
		{name: "bare hash", input: hash + "\n", asset: "micromamba-linux-64", want: hash},
		{name: "uppercase bare hash", input: strings.ToUpper(hash), asset: "x", want: hash},
		{name: "sha256sum text mode", input: other + "  a.tar.bz2\n" + hash + "  micromamba-linux-64.tar.bz2\n", asset: "micromamba-linux-64.tar.bz2", want: hash},
		{name: "sha256sum binary mode", input: hash + " *micromamba-osx-64", asset: "micromamba-osx-64", want: hash},
		{name: "path prefix", input: hash + "  dist/micromamba-win-64", asset: "micromamba-win-64", want: hash},
		{name: "other asset only", input: other + "  something-else", asset: "micromamba-linux-64", wantErr: ErrNoChecksum},
		{name: "garbage", input: "not a checksum\n\n", asset: "micromamba-linux-64", wantErr: ErrNoChecksum},
		{name: "short hash", input: "abc123", asset: "x", wantErr: ErrNoChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseChecksum(strings.NewReader(tt.input), tt.asset)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseChecksum() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChecksum() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseChecksum() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerifyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	// sha256("hello")
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	if err := VerifyFile(path, strings.ToUpper(want), "blob"); err != nil {
		t.Errorf("VerifyFile() with matching hash: %v", err)
	}

	err := VerifyFile(path, strings.Repeat("0", 64), "blob")
	var ce *ChecksumError
	if !errors.As(err, &ce) {
		t.Fatalf("VerifyFile() error = %v, want *ChecksumError", err)
	}
	if ce.Got != want || ce.Filename != "blob" {
		t.Errorf("ChecksumError = %+v", ce)
	}
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Error("ChecksumError should wrap ErrChecksumMismatch")
	}

	if err := VerifyFile(filepath.Join(t.TempDir(), "missing"), want, "missing"); err == nil {
		t.Error("VerifyFile() on a missing file should fail")
	}
}
