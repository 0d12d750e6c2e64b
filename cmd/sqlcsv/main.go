package main

import (
	"os"

	"github.com/open-cli-collective/sqlcsv-cli/internal/cmd/root"
)

func main() {
	cmd := root.NewCmdRoot()
	if err := cmd.Execute(); err != nil {
		root.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
