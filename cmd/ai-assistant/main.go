package main

import (
	"os"

	"github.com/basnijholt/ai-assistant/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
