// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/pveprov/pveprov/cmd/pveprov"

func main() {
	cmd.Execute()
}
