package main

import (
	"os"

	"github.com/routeguard/routeguard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
