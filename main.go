package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/minimancer/botmother/cmd"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	rootCMD := cobra.Command{Use: "botmother"}
	rootCMD.AddCommand(
		&cmd.ServerCMD,
		&cmd.CliCompletionCMD,
		&cmd.TeleCMD,
		&cmd.PoolCMD,
		&cmd.ConfigCMD,
	)
	rootCMD.Execute()
}
