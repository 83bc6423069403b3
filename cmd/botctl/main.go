// Package main is botctl, an operator tool for inspecting and validating
// command definition files.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
