package main

import (
	"os"

	"github.com/go-delve/tdb/cmd/tdb/cmds"
	"github.com/go-delve/tdb/pkg/version"
)

// Build is the git sha of this binaries build.
var Build string

func main() {
	if Build != "" {
		version.TdbVersion.Build = Build
	}
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
