package cmd

import (
	"os"
	"os/signal"

	"github.com/minimancer/botmother/botmother"
	"github.com/spf13/cobra"
)

func init() {
	ServerCMD.Flags().AddFlagSet(botmother.FlagSet)
}

var ServerCMD = cobra.Command{
	Use:   "serve",
	Short: "run the botmother server",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		cfg, err := botmother.LoadAndValidate(cmd.Flags())
		if err != nil {
			return err
		}

		srv, err := botmother.NewHttp(ctx, *cfg)
		if err != nil {
			return err
		}
		return srv.Start()
	},
}
