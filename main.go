package main

import (
	"os"

	"convokit/cli"
	"convokit/core"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().WithError(err).Debug("No .env.local file found or failed to load")
	}
	if err := cli.NewRootCmd().Execute(); err != nil {
		core.NewWriterLogger(os.Stderr, core.LevelError).WithError(err).Error("command failed")
		os.Exit(1)
	}
}
