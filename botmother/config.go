package botmother

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/minimancer/botmother/agent/driver"
	"github.com/minimancer/botmother/agent/tooldef"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var defaultConfig embed.FS

// Config aggregates configuration across the botmother environment.
type Config struct {
	Server   ServerConfig     `yaml:"server"`
	Pool     PoolConfig       `yaml:"pool"`
	Provider Provider         `yaml:"provider"`
	Tools    []tooldef.Config `yaml:"tools"`
	Observe  ObsConfig        `yaml:"observability" mapstructure:"observability"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
	Debug   bool   `yaml:"debug"`
}

// PoolConfig locates the persisted token pool.
type PoolConfig struct {
	File string `yaml:"file"`
	// return cleaned-up tokens to the pool instead of retiring them
	Recycle bool `yaml:"recycle"`
}

// Provider is the external llm backend serving the mother agent and
// the personality child bots.
type Provider struct {
	Name     string        `yaml:"name"`
	Model    string        `yaml:"model"`
	ApiKey   string        `yaml:"apikey"`
	Endpoint string        `yaml:"endpoint"`
	Options  driver.Config `yaml:"options"`
}

type ObsConfig struct {
	Enable bool `yaml:"enable"`
	// exporter kind; unset but enabled falls back to stdout
	Exporter        string `yaml:"exporter"`
	TraceEndpoint   string `yaml:"traceendpoint"`
	MetricsEndpoint string `yaml:"metricsendpoint"`
	// https endpoints
	Secure bool `yaml:"secure"`
}

func (c *Config) validate() error {
	if c.Server.Address == "" {
		return errors.New("server address is required")
	}
	if _, _, err := net.SplitHostPort(c.Server.Address); err != nil {
		return fmt.Errorf("invalid server address format: %w", err)
	}

	if c.Pool.File == "" {
		return errors.New("pool file path is required")
	}

	if c.Provider.Name == "" {
		return errors.New("provider name is required")
	}
	if c.Provider.Model == "" {
		return errors.New("provider model is required")
	}
	return nil
}

// DumpYAML renders the effective configuration.
func (c *Config) DumpYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(c)
}

// LoadAndValidate layers configuration in order: embedded defaults,
// an optional external config file, BOTMOTHER_* env variables, then
// flags. Later layers win.
func LoadAndValidate(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOTMOTHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flagName, configKey := range flagToConfigKeyMap {
		if err := v.BindPFlag(configKey, flags.Lookup(flagName)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flagName, err)
		}
	}

	defaultBytes, _ := defaultConfig.ReadFile("config.yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultBytes)); err != nil {
		return nil, fmt.Errorf("failed to read default config: %w", err)
	}

	configFile, _ := flags.GetString(FlagServerConfigFile)
	if configFile != "" {
		f, err := os.Open(configFile)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		defer f.Close()
		provided, _ := io.ReadAll(f)
		if err := v.MergeConfig(bytes.NewReader(provided)); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
