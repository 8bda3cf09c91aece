package main

import (
	"os"

	"tourism-app/internal/app/cli"
	"tourism-app/internal/infra/logger"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
