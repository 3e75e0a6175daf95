package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/minimancer/botmother/api"
	"github.com/spf13/cobra"
)

func init() {
	CliCompletionCMD.Flags().StringVar(&GlobEndpoint, "addr", "http://localhost:11823", "")
}

var (
	GlobEndpoint = ""
)

// CliCompletionCMD is an interactive terminal chat with the mother
// agent. Type /exit to quit.
var CliCompletionCMD = cobra.Command{
	Use:  "chat",
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {

		start(cmd.Context())

		return nil
	},
}

func start(ctx context.Context) {
	c := api.NewClient(GlobEndpoint, "")
	scanner := bufio.NewScanner(os.Stdin)
	session := session{}

	scanner.Split(bufio.ScanLines)
	for scanner.Scan() {
		input := scanner.Text()
		switch input {
		case "/exit":
			return
		}
		fmt.Printf("\n")
		session.history = append(session.history, api.NewTextMessage("user", input))
		res, err := c.Chat(
			ctx,
			api.ChatRequest{
				Content: session.history,
			})

		if err != nil {
			fmt.Printf(">error: %s \n", err)
			return
		}

		fmt.Printf(">model: %s \n\n", res.Text)
		session.history = append(session.history, api.NewTextMessage("assistant", res.Text))
	}
}

type session struct {
	history []*api.Message
}
