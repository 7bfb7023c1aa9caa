package main

import (
	"os"

	"github.com/DataVisuals/expectations/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
