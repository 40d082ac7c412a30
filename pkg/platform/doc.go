// SPDX-License-Identifier: MPL-2.0

// Package platform maps the host operating system and architecture onto the
// names micromamba and conda use for them, and holds the small set of
// cross-platform filename rules condathis needs when it turns environment
// names into directories.
package platform
