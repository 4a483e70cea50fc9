// Package main is the entry point for the quietly CLI and service
package main

import (
	"os"

	"quietly-stated/internal/cli"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
