// Package main provides the entry point for the searchfs CLI.
package main

import (
	"os"

	"github.com/searchfs/searchfs/cmd/searchfs/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
