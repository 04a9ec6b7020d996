// SPDX-License-Identifier: MPL-2.0

// Command cargoscope discovers and analyzes cargo projects across a directory tree.
package main

import cmd "github.com/cargoscope/cargoscope/cmd/cargoscope"

func main() {
	cmd.Execute()
}
