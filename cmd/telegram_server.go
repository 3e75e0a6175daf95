package cmd

import (
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/minimancer/botmother/api"
	telebot "github.com/minimancer/botmother/tgbot"
	"github.com/spf13/cobra"
	tele "gopkg.in/telebot.v4"
)

func init() {
	TeleCMD.Flags().Bool("prod", false, "deployment tags")
	TeleCMD.Flags().String("backend", "", "botmother server endpoint")
}

// TeleCMD runs the mother control bot: one Telegram bot that talks to
// the botmother server on behalf of users.
var TeleCMD = cobra.Command{
	Use: "bot",
	RunE: func(cmd *cobra.Command, args []string) error {

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		conf := telebot.DefaultConfig()
		isProd, _ := cmd.Flags().GetBool("prod")
		conf.Bot.IsProd = isProd
		if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
			conf.Mother.Endpoint = backend
		}

		if conf.Bot.IsProd {
			slog.Info("Deployment", "is_production", conf.Bot.IsProd)
			slog.SetLogLoggerLevel(slog.LevelError)
		} else {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}

		//bot
		setting := tele.Settings{
			Token:  conf.Bot.Key,
			Poller: &tele.LongPoller{Timeout: conf.Bot.Timeout},
		}
		bot, err := tele.NewBot(setting)
		if err != nil {
			log.Fatal(err)
		}

		// botmother backend
		mother := api.NewClient(conf.Mother.Endpoint, conf.Mother.Key)

		// cache
		cache := telebot.NewCache()

		telebot.Handle(ctx, bot, mother, cache)

		srvErr := make(chan error, 1)
		go func() {
			bot.Start()
			_, err := bot.Close()
			srvErr <- err
		}()

		select {
		case err = <-srvErr:
			return err
		case <-ctx.Done():
			stop()
		}

		bot.Stop()

		return nil
	},
}
