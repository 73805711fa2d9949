// Package main provides the entry point for the docsmcp CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/docsmcp/cmd/docsmcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
