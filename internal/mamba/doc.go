// SPDX-License-Identifier: MPL-2.0

// Package mamba drives the micromamba executable: it builds argument
// vectors, computes the child environment, spawns exactly one process per
// call, and reports the outcome as a Result.
//
// Arguments are always passed as argv elements. Nothing is interpreted by a
// shell, so pipes, globs and redirections inside arguments reach the tool
// literally.
package mamba
