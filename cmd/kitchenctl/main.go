// Command kitchenctl runs the kitchen sheet rules against a store from the
// command line: replaying edits, reclassifying inventory, previewing batch
// codes and issuing host tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "kitchenctl: %v\n", err)
		os.Exit(1)
	}
}
