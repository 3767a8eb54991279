// Package main provides the entry point for the podsearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/podsearch/cmd/podsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
