// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by condathis tests: Must*
// wrappers that fail the test instead of returning errors, XDG directory
// redirection, and FakeMicromamba, a shell script that mimics the
// micromamba commands condathis issues so that invoker and CLI tests run
// without network access.
package testutil
