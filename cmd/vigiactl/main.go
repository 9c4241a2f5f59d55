// Package main es la CLI de operación de vigia-auth.
package main

import (
	"fmt"
	"os"
)

// Versión inyectada en build (-ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := NewRootCmd(defaultDeps())
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
