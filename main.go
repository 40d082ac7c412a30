// SPDX-License-Identifier: MPL-2.0

// Command condathis runs command-line tools in isolated micromamba
// environments.
package main

import cmd "github.com/c1au6i0/condathis/cmd/condathis"

func main() {
	cmd.Execute()
}
