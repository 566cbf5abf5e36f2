// engram browses study materials from the command line.
package main

import (
	"os"

	"engram/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
