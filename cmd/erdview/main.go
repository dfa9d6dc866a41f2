// Package main provides the erdview command.
package main

import (
	"os"

	"github.com/leapstack-labs/erdview/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
