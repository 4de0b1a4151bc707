package cmd

import (
	"log"

	"github.com/spigell/company-researcher/internal/cache"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "company-researcher"
)

type Config struct {
	Server   *ServerConfig   `mapstructure:"server"`
	Astra    *AstraConfig    `mapstructure:"astra"`
	Langflow *LangflowConfig `mapstructure:"langflow"`
	HubSpot  *HubSpotConfig  `mapstructure:"hubspot"`
	Clay     *ClayConfig     `mapstructure:"clay"`
	Search   *SearchConfig   `mapstructure:"search"`
	AI       *AIConfig       `mapstructure:"ai"`
	Cache    *cache.Config   `mapstructure:"cache"`
	Sync     *SyncConfig     `mapstructure:"sync"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type AstraConfig struct {
	TokenFile  string `mapstructure:"token-file"`
	Endpoint   string `mapstructure:"endpoint"`
	Keyspace   string `mapstructure:"keyspace"`
	Collection string `mapstructure:"collection"`
}

type LangflowConfig struct {
	URL         string `mapstructure:"url"`
	APIKeyFile  string `mapstructure:"api-key-file"`
	NoFallback  bool   `mapstructure:"no-fallback"`
	TestOnStart bool   `mapstructure:"test-on-start"`
}

type HubSpotConfig struct {
	TokenFile string `mapstructure:"token-file"`
}

type ClayConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
}

type SearchConfig struct {
	ExaKeyFile    string `mapstructure:"exa-key-file"`
	TavilyKeyFile string `mapstructure:"tavily-key-file"`
}

type AIConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	MinConfidence float64       `mapstructure:"min-confidence"`
	Gemini        *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type SyncConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	IntervalMinutes int      `mapstructure:"interval-minutes"`
	Domains         []string `mapstructure:"domains"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "company-researcher aggregates company intelligence from research workflows, web search and CRM signals",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is company-researcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Only commands that talk to the backends need a config.
	if serveCmd.CalledAs() == "" && researchCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
