package main

import (
	"os"

	"github.com/dinecore/dinecore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
