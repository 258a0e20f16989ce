// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/trellis/cmd/trellis"

func main() {
	cmd.Execute()
}
