package botmother

import "github.com/spf13/pflag"

const (
	FlagProviderKey      = "p_key"
	FlagProviderEndpoint = "p_addr"
	FlagProviderName     = "p_name"
	FlagProviderModel    = "p_model"

	FlagServerAddress    = "addr"
	FlagServerDebug      = "debug"
	FlagServerConfigFile = "config"

	FlagPoolFile    = "pool"
	FlagPoolRecycle = "recycle"

	FlagObserveEnable = "observe"
)

// FlagSet is the defined set of flags for botmother configuration.
var FlagSet = pflag.NewFlagSet("BotMother_Flags", pflag.PanicOnError)

var flagToConfigKeyMap = map[string]string{
	FlagProviderKey:      "provider.apikey",
	FlagProviderEndpoint: "provider.endpoint",
	FlagProviderName:     "provider.name",
	FlagProviderModel:    "provider.model",

	FlagServerAddress: "server.address",
	FlagServerDebug:   "server.debug",

	FlagPoolFile:    "pool.file",
	FlagPoolRecycle: "pool.recycle",

	FlagObserveEnable: "observability.enable",
}

func init() {
	defineFlags()
}

func defineFlags() {
	// server
	FlagSet.String(FlagServerAddress, "", "server address")
	FlagSet.Bool(FlagServerDebug, false, "debug log")
	FlagSet.String(FlagServerConfigFile, "", "path to config file")

	// pool
	FlagSet.String(FlagPoolFile, "", "path to the token pool file")
	FlagSet.Bool(FlagPoolRecycle, false, "recycle tokens of cleaned-up bots")

	// provider
	FlagSet.String(FlagProviderKey, "", "provider's api key")
	FlagSet.String(FlagProviderEndpoint, "", "provider's endpoint")
	FlagSet.String(FlagProviderName, "", "provider's name")
	FlagSet.String(FlagProviderModel, "", "provider's model name")

	// observability
	FlagSet.Bool(FlagObserveEnable, false, "enable observability, default false")
}
