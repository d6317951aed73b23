// Package config loads the engine's environment-supplied configuration
// table via viper, with an optional .env file layered underneath the
// process environment by godotenv.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the typed form of the engine's configuration table.
type Config struct {
	CorpusPath         string `mapstructure:"corpus_path"`
	EmbedModelID       string `mapstructure:"embed_model_id"`
	GeocoderURL        string `mapstructure:"geocoder_url"`
	IndexerWorkers     int    `mapstructure:"indexer_workers"`
	AnnRebuildOnStart  bool   `mapstructure:"ann_rebuild_on_start"`
	LLMProvider        string `mapstructure:"llm_provider"`
	LLMModel           string `mapstructure:"llm_model"`
	LogLevel           string `mapstructure:"log_level"`
}

var global *Config

// Load reads configuration from (in increasing precedence) built-in
// defaults, an optional picta.yaml in the working directory, a .env
// file, and the process environment. configFile overrides the default
// discovery path when non-empty. Returns the same *Config on every call
// after the first.
func Load(configFile string) (*Config, error) {
	if global != nil {
		return global, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "config: warning: error loading .env: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("picta")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	global = cfg
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("corpus_path", "picta.db")
	viper.SetDefault("embed_model_id", "")
	viper.SetDefault("geocoder_url", "https://nominatim.openstreetmap.org/search")
	viper.SetDefault("indexer_workers", 4)
	viper.SetDefault("ann_rebuild_on_start", false)
	viper.SetDefault("llm_provider", "")
	viper.SetDefault("llm_model", "")
	viper.SetDefault("log_level", "info")
}

// Reset clears the cached global configuration. Test-only: production
// callers load configuration once per process.
func Reset() { global = nil }
