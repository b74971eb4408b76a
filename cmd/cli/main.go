// Package main is the entry point for the mesplane CLI.
// The CLI plans and schedules locally and talks to the controller API.
package main

import (
	"os"

	"mesplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
