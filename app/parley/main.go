package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/cchalm/parley/app/parley/cmd"
)

// Version information set by ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, GitCommit, BuildTime)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "💡 %s\n", hint)
		}
		os.Exit(1)
	}
}
