// Package main provides the entry point for the multitest CLI.
package main

import (
	"os"

	"yqhp/multitest/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
