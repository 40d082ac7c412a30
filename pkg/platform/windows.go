// SPDX-License-Identifier: MPL-2.0

package platform

import "strings"

// reservedNames are device names Windows refuses as file or directory names,
// regardless of extension. Environment names become directories under the
// installation directory, so they must avoid these on every platform to keep
// an installation portable.
var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {},
	"COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {},
	"LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// IsReservedName reports whether name (ignoring case and any extension) is a
// Windows device name.
func IsReservedName(name string) bool {
	base := strings.ToUpper(name)
	if idx := strings.IndexByte(base, '.'); idx != -1 {
		base = base[:idx]
	}
	_, ok := reservedNames[base]
	return ok
}
