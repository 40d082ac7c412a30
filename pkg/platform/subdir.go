// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupportedPlatform is returned when no micromamba build exists for the
// host operating system and architecture.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

type (
	// Subdir is a conda platform subdirectory name such as "linux-64".
	// micromamba release assets and package channels are keyed by it.
	Subdir string

	// UnsupportedPlatformError carries the GOOS/GOARCH pair that has no
	// matching conda subdir.
	UnsupportedPlatformError struct {
		GOOS   string
		GOARCH string
	}
)

// Known conda subdirs with published micromamba builds.
const (
	SubdirLinux64      Subdir = "linux-64"
	SubdirLinuxAarch64 Subdir = "linux-aarch64"
	SubdirLinuxPPC64le Subdir = "linux-ppc64le"
	SubdirOSX64        Subdir = "osx-64"
	SubdirOSXArm64     Subdir = "osx-arm64"
	SubdirWin64        Subdir = "win-64"
)

// Error implements the error interface.
func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("no micromamba build for %s/%s", e.GOOS, e.GOARCH)
}

// Unwrap returns ErrUnsupportedPlatform for errors.Is.
func (e *UnsupportedPlatformError) Unwrap() error { return ErrUnsupportedPlatform }

// String returns the subdir name.
func (s Subdir) String() string { return string(s) }

// SysArch returns the conda subdir of the running process.
func SysArch() (Subdir, error) {
	return SubdirFor(runtime.GOOS, runtime.GOARCH)
}

// SubdirFor maps a GOOS/GOARCH pair to its conda subdir.
func SubdirFor(goos, goarch string) (Subdir, error) {
	switch goos {
	case Linux:
		switch goarch {
		case "amd64":
			return SubdirLinux64, nil
		case "arm64":
			return SubdirLinuxAarch64, nil
		case "ppc64le":
			return SubdirLinuxPPC64le, nil
		}
	case Darwin:
		switch goarch {
		case "amd64":
			return SubdirOSX64, nil
		case "arm64":
			return SubdirOSXArm64, nil
		}
	case Windows:
		if goarch == "amd64" {
			return SubdirWin64, nil
		}
	}
	return "", &UnsupportedPlatformError{GOOS: goos, GOARCH: goarch}
}
