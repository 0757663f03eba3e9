package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-ranker/internal/jobs"
	"github.com/spigell/job-ranker/internal/source"
)

const (
	app = "job-ranker"
)

type Config struct {
	Source      *source.Config   `mapstructure:"source"`
	Filters     *jobs.Filters    `mapstructure:"filters"`
	Filtering   *FilteringConfig `mapstructure:"filtering"`
	ExcludeFile string           `mapstructure:"exclude-file"`

	// Jobs of these companies are dropped before ranking.
	ExcludeCompanies []string     `mapstructure:"exclude-companies"`
	AI               *AIConfig     `mapstructure:"ai"`
	Cache            *CacheConfig  `mapstructure:"cache"`
	Output           *OutputConfig `mapstructure:"output"`
}

type FilteringConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	ScoreTimeout time.Duration `mapstructure:"score-timeout"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	Prompt   *PromptConfig `mapstructure:"prompt"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type PromptConfig struct {
	ExtraCriteria    string `mapstructure:"extra-criteria"`
	UserInstructions string `mapstructure:"user-instructions"`
}

type CacheConfig struct {
	Backend  string        `mapstructure:"backend"`
	RedisURL string        `mapstructure:"redis-url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type OutputConfig struct {
	XLSX string `mapstructure:"xlsx"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-ranker filters and ranks job postings against your search preferences",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("cache.redis-url", "JOB_RANKER_REDIS_URL"); err != nil {
		log.Fatalf("binding JOB_RANKER_REDIS_URL environment variable: %v", err)
	}

	viper.SetDefault("filtering.concurrency", 4)
	viper.SetDefault("filtering.score-timeout", 30*time.Second)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.ttl", 24*time.Hour)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for rank command now. If there is no config, we can skip initialization
	if rankCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
		viper.SetConfigType("yaml")
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

	if config == nil {
		config = &Config{}
	}
	if config.Filters == nil {
		config.Filters = &jobs.Filters{}
	}
	if config.Filtering == nil {
		config.Filtering = &FilteringConfig{}
	}

	return config, nil
}
