// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxChecksumBytes caps the size of a downloaded .sha256 file.
const maxChecksumBytes = 64 << 10

var (
	// ErrChecksumMismatch indicates the computed SHA256 does not match the published one.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrNoChecksum indicates a checksum file had no usable entry for the asset.
	ErrNoChecksum = errors.New("no checksum entry for asset")
)

// ChecksumError describes a failed verification. It wraps ErrChecksumMismatch.
type ChecksumError struct {
	Filename string
	Expected string
	Got      string
}

// Error shows both hashes for debugging.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// ParseChecksum reads a sha256 file and returns the hash for assetName.
//
// Two layouts are accepted: a bare hash on its own line, as published next to
// each micromamba asset, and sha256sum output ("<hash>  <file>" or
// "<hash> *<file>"). A bare hash applies to whatever asset it was fetched for.
func ParseChecksum(r io.Reader, assetName string) (string, error) {
	sc := bufio.NewScanner(io.LimitReader(r, maxChecksumBytes))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || !isHexSHA256(fields[0]) {
			continue
		}
		hash := strings.ToLower(fields[0])
		if len(fields) == 1 {
			return hash, nil
		}
		name := strings.TrimPrefix(fields[1], "*")
		if name == assetName || filepath.Base(name) == assetName {
			return hash, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading checksum: %w", err)
	}
	return "", fmt.Errorf("%w: %s", ErrNoChecksum, assetName)
}

// VerifyFile hashes path and compares it, case-insensitively, with expected.
// label names the asset in the returned *ChecksumError.
func VerifyFile(path, expected, label string) error {
	got, err := FileSHA256(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, expected) {
		return &ChecksumError{Filename: label, Expected: strings.ToLower(expected), Got: got}
	}
	return nil
}

// FileSHA256 returns the lowercase hex SHA256 digest of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isHexSHA256(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
