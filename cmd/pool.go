package cmd

import (
	"fmt"

	"github.com/minimancer/botmother/api"
	"github.com/spf13/cobra"
)

func init() {
	PoolCMD.PersistentFlags().String("addr", "http://localhost:11823", "botmother server endpoint")
	PoolCMD.AddCommand(&poolStatsCMD, &poolListCMD, &poolAddCMD, &poolRemoveCMD, &poolCleanupCMD)
}

func poolClient(cmd *cobra.Command) *api.Client {
	addr, _ := cmd.Flags().GetString("addr")
	return api.NewClient(addr, "")
}

// PoolCMD groups token pool administration against a running server.
var PoolCMD = cobra.Command{
	Use:   "pool",
	Short: "inspect and manage the bot token pool",
}

var poolStatsCMD = cobra.Command{
	Use:  "stats",
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := poolClient(cmd).PoolStats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("total:     %d\n", stats.TotalTokens)
		fmt.Printf("available: %d\n", stats.AvailableTokens)
		fmt.Printf("allocated: %d\n", stats.AllocatedTokens)
		fmt.Printf("bots:      %d\n", stats.ActiveBots)
		for status, n := range stats.StatusBreakdown {
			fmt.Printf("  %s: %d\n", status, n)
		}
		return nil
	},
}

var poolListCMD = cobra.Command{
	Use:  "list",
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		bots, err := poolClient(cmd).ListBots(cmd.Context())
		if err != nil {
			return err
		}
		for _, b := range bots {
			fmt.Printf("%s\t%s\t%s\n", b.Name, b.Status, b.Link)
		}
		return nil
	},
}

var poolAddCMD = cobra.Command{
	Use:  "add <token>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := poolClient(cmd).AddToken(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("token added")
		return nil
	},
}

var poolRemoveCMD = cobra.Command{
	Use:  "remove <token>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := poolClient(cmd).RemoveToken(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("token removed")
		return nil
	},
}

var poolCleanupCMD = cobra.Command{
	Use:  "cleanup",
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := poolClient(cmd).Cleanup(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("removed %d stopped bots\n", n)
		return nil
	},
}
