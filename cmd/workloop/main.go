package main

import (
	"fmt"
	"os"

	"github.com/psantana5/workloop/cmd/workloop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(cmd.ExitCode())
}
