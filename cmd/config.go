package cmd

import (
	"os"

	"github.com/minimancer/botmother/botmother"
	"github.com/spf13/cobra"
)

func init() {
	ConfigCMD.Flags().AddFlagSet(botmother.FlagSet)
}

// ConfigCMD prints the effective configuration after layering
// defaults, config file, environment, and flags.
var ConfigCMD = cobra.Command{
	Use:  "config",
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := botmother.LoadAndValidate(cmd.Flags())
		if err != nil {
			return err
		}
		return cfg.DumpYAML(os.Stdout)
	},
}
