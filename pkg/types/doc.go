// SPDX-License-Identifier: MPL-2.0

// Package types holds the small validated value types shared by the
// installer, the invoker, and the CLI: process exit codes, environment
// names, and conda package specifications.
package types
