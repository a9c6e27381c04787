// Package main is the entry point for the nursery advisor
package main

import (
	"os"

	"github.com/mrcode/nursery-advisor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
