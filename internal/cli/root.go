package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/corroborate/internal/model"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "corroborate",
	Short: "Corroborate - multi-algorithm claim validation against news articles",
	Long: `Corroborate scores structured claims (subject, verb, object, location)
against annotated news articles with several independent algorithms,
stores every (query, algorithm, article) result once, and votes on which
claims are corroborated.

Each algorithm has its own confidence threshold; a claim passes when the
share of passing evaluations reaches the global threshold.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("corroborate %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.corroborate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".corroborate"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CORROBORATE_DATABASE_DSN overrides database.dsn and so on
	viper.SetEnvPrefix("CORROBORATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	setDefaults(cfg)

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", model.ErrConfiguration, err)
	}
	canonicalAlgorithms(cfg)

	// provider keys are usually exported under their own names
	if cfg.Similarity.APIKey == "" {
		switch strings.ToLower(cfg.Similarity.Provider) {
		case "openai":
			cfg.Similarity.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.Similarity.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.Similarity.BaseURL == "" && strings.EqualFold(cfg.Similarity.Provider, "ollama") {
		cfg.Similarity.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers the scalar defaults so environment variables can override them
func setDefaults(cfg *model.Config) {
	viper.SetDefault("database.driver", cfg.Database.Driver)
	viper.SetDefault("database.dsn", cfg.Database.DSN)
	viper.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	viper.SetDefault("voting.global_threshold", cfg.Voting.GlobalThreshold)
	viper.SetDefault("rank.iterations", cfg.Rank.Iterations)
	viper.SetDefault("rank.threshold", cfg.Rank.Threshold)
	viper.SetDefault("rank.damping", cfg.Rank.Damping)
	viper.SetDefault("similarity.provider", cfg.Similarity.Provider)
	viper.SetDefault("similarity.timeout", cfg.Similarity.Timeout)
	viper.SetDefault("similarity.requests_per_second", cfg.Similarity.RequestsPerSecond)
	viper.SetDefault("similarity.burst", cfg.Similarity.Burst)
	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.backend", cfg.Cache.Backend)
	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("cache.ttl", cfg.Cache.TTL)
	viper.SetDefault("metrics.addr", cfg.Metrics.Addr)
	viper.SetDefault("log.level", cfg.Log.Level)
	viper.SetDefault("log.format", cfg.Log.Format)
}

// canonicalAlgorithms restores the catalog spelling of built-in names,
// which viper lowercases when reading map keys
func canonicalAlgorithms(cfg *model.Config) {
	builtin := []string{model.AlgorithmKeyword, model.AlgorithmTFIDF, model.AlgorithmTextRank}
	for name, ac := range cfg.Algorithms {
		for _, canonical := range builtin {
			if name != canonical && strings.EqualFold(name, canonical) {
				delete(cfg.Algorithms, name)
				cfg.Algorithms[canonical] = ac
			}
		}
	}
}

// newLogger builds the process logger from the log section; --verbose forces debug
func newLogger(c model.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(c.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
