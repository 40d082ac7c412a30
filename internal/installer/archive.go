// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
)

// maxBinaryBytes bounds the extracted executable (500 MB) to guard against
// decompression bombs.
const maxBinaryBytes = 500 << 20

// ErrExtractFailed marks archive problems (corrupt bzip2 stream, bad tar
// framing, missing entry). The installer answers it by trying the raw
// executable asset instead.
var ErrExtractFailed = errors.New("archive extraction failed")

// extractFromTarBz2 copies the entry whose base name is binaryName out of
// the .tar.bz2 at archivePath into a new temp file in dir, returning its path.
// Entries are matched by base name so bin/micromamba and
// Library/bin/micromamba.exe are both found.
func extractFromTarBz2(archivePath, binaryName, dir string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	tr := tar.NewReader(bzip2.NewReader(f))
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: %s not found in archive", ErrExtractFailed, binaryName)
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrExtractFailed, err)
		}
		if hdr.Typeflag != tar.TypeReg || path.Base(hdr.Name) != binaryName {
			continue
		}
		if hdr.Size > maxBinaryBytes {
			return "", fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrExtractFailed, hdr.Name, hdr.Size, maxBinaryBytes)
		}
		return writeTemp(dir, "micromamba-extract-*", io.LimitReader(tr, maxBinaryBytes), ErrExtractFailed)
	}
}

// writeTemp copies r into a new temp file in dir. Read errors from r are
// wrapped with readSentinel when it is non-nil; the partial file is removed
// on any failure.
func writeTemp(dir, pattern string, r io.Reader, readSentinel error) (_ string, err error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing temp file: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, copyErr := io.Copy(tmp, readerFunc(func(p []byte) (int, error) {
		n, rerr := r.Read(p)
		if rerr != nil && !errors.Is(rerr, io.EOF) && readSentinel != nil {
			rerr = fmt.Errorf("%w: %w", readSentinel, rerr)
		}
		return n, rerr
	})); copyErr != nil {
		return "", fmt.Errorf("writing %s: %w", tmp.Name(), copyErr)
	}
	return tmp.Name(), nil
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
