// Command dxparse classifies DX cluster lines from the command line or a
// capture file and prints the parsed spots.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errSilentExit) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
