// Package main is the entrypoint for explorerctl, the command-line client
// for the data-explorer gateway.
package main

import (
	"os"

	"github.com/nexushealth/data-explorer/internal/cli"
)

// Build-time version information, set via -ldflags.
var (
	version   = ""
	gitCommit = ""
	buildDate = ""
)

func main() {
	cli.SetVersionInfo(version, gitCommit, buildDate)
	c := cli.New()
	os.Exit(c.Execute())
}
