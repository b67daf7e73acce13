// Package main provides the CLI for the milestone incremental ingestion compiler.
package main

import (
	"os"

	"github.com/leapstack-labs/milestone/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
