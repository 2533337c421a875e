// Command routectl classifies prompts and inspects the model catalog from
// the command line, and serves the router as an MCP tool over stdio.
package main

import (
	"fmt"
	"os"
)

// Version information (set at build time)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
