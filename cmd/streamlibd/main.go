// Package main is the entry point for streamlibd.
package main

import (
	"os"

	"github.com/tatolab/streamlib/cmd/streamlibd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
