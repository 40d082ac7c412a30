// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// ExeSuffix returns ".exe" on Windows and "" elsewhere.
func ExeSuffix() string {
	return exeSuffixFor(runtime.GOOS)
}

func exeSuffixFor(goos string) string {
	if goos == Windows {
		return ".exe"
	}
	return ""
}

// IsWindows reports whether the current process runs on Windows.
func IsWindows() bool { return runtime.GOOS == Windows }
