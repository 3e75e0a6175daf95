package telebot

import (
	"os"
	"time"
)

/*
	var hierarchy:
	1. default (if any)
	2. env
	3. flag
*/

type Config struct {
	Bot    BotConfig
	Mother MotherConfig
}

type BotConfig struct {
	IsProd  bool
	Key     string
	Timeout time.Duration
}

// MotherConfig points at the botmother REST server.
type MotherConfig struct {
	Endpoint string
	Key      string
}

func DefaultConfig() Config {
	var conf Config
	conf.Bot.Timeout = 10 * time.Second

	_ = ReadFromEnv(&conf)
	return conf
}

func ReadFromEnv(conf *Config) error {
	conf.Bot.Key = botTokenVar()
	if v := os.Getenv("BOTMOTHER_ENDPOINT"); v != "" {
		conf.Mother.Endpoint = v
	}
	if v := os.Getenv("BOTMOTHER_API_KEY"); v != "" {
		conf.Mother.Key = v
	}
	return nil
}

func GetBotTokenEnv() string {
	return botTokenVar()
}

func botTokenVar() string {
	return os.Getenv("TG_BOT_API_KEY")
}
