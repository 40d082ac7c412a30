// SPDX-License-Identifier: MPL-2.0

// Package installer downloads the static micromamba executable from the
// mamba-org/micromamba-releases GitHub releases into an installation layout.
package installer
