package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/credence/internal/logging"
	"github.com/ppiankov/credence/internal/model"
)

// Build information, set with -ldflags at release time
var (
	Version = "0.1.0"
	Commit  = "none"
)

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
	logger    = slog.Default()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "credence",
	Short: "Credence - credibility scores for oracle readings",
	Long: `Credence assigns a 0-100 credibility score to a single oracle reading.

Each reading is scored on four factors (source reputation, freshness,
agreement with reference values and proof of origin). The factors are
combined with a weight profile chosen for the data category, and the
result is classified into a trust level with a plain-language explanation.

Credence does not decide what is true. It reports how much a reading
can be relied on, and why.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := viper.GetString("log.level")
		if verbose {
			level = "debug"
		}
		logger = logging.SetDefault(level, viper.GetString("log.format"))
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", "path", used)
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Credence.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "credence v%s (%s)\n", Version, Commit)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.credence/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".credence"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	configureEnv(viper.GetViper())

	// A missing config file is fine; defaults apply
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}
}

// envKeys are the nested keys that can be set through CREDENCE_* variables
var envKeys = []string{
	"factors.max_age",
	"factors.tolerance_percent",
	"factors.accuracy_decay_percent",
	"verification.enabled",
	"verification.service_url",
	"verification.app_id",
	"verification.app_secret",
	"verification.witness_public_key",
	"verification.timeout",
	"verification.callback_base_url",
	"verification.attest_source_url",
	"verification.simulated_success_rate",
	"advisor.provider",
	"advisor.model",
	"advisor.api_key",
	"advisor.base_url",
	"store.enabled",
	"store.driver",
	"store.dsn",
	"chain.relay_url",
	"chain.token",
	"chain.timeout",
	"cache.pending_ttl",
	"concurrency.workers",
	"server.addr",
	"server.max_batch",
	"http.user_agent",
	"http.http_proxy",
	"http.https_proxy",
	"http.no_proxy",
	"log.level",
	"log.format",
}

// configureEnv maps CREDENCE_SECTION_KEY variables onto nested config keys
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("CREDENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	// The conventional variable works too
	_ = v.BindEnv("advisor.api_key", "CREDENCE_ADVISOR_API_KEY", "OPENAI_API_KEY")
}

// loadConfig merges defaults, the config file, env vars and bound flags
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
