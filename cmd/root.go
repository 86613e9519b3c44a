package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chatblock-ai/chatblock/internal/config"
	"github.com/chatblock-ai/chatblock/internal/provider"
	"github.com/chatblock-ai/chatblock/internal/session"
)

var (
	cfgFile      string
	modelFlag    string
	providerFlag string
	noStreamFlag bool
	tempFlag     float64
	verboseFlag  bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	rootCmd := &cobra.Command{
		Use:   "chatblock",
		Short: "Conversational wrapper around hosted chat LLMs",
		Long: "chatblock manages a bounded rolling conversation against a hosted chat model:\n" +
			"history is trimmed to the model's token budget, and streaming, non-streaming,\n" +
			"and failure responses all normalize into one answer shape.",
		// Running chatblock with no subcommand starts chat mode.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/chatblock/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "override model")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "override provider")
	rootCmd.PersistentFlags().BoolVar(&noStreamFlag, "no-stream", false, "wait for complete answers instead of streaming")
	rootCmd.PersistentFlags().Float64VarP(&tempFlag, "temperature", "t", 0, "override temperature")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "debug logging")

	// Subcommands
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newModelsCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// CLI flags override config values
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if noStreamFlag {
		cfg.Stream = false
	}
	if tempFlag > 0 {
		cfg.Temperature = tempFlag
	}
	if verboseFlag {
		cfg.Log.Level = "debug"
	}

	return cfg
}

// newLogger builds the logging sink handed to the session. Logs go to
// stderr so they never interleave with streamed answer text on stdout.
func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.ErrorLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// buildProvider creates a Provider instance based on configuration.
func buildProvider(cfg *config.Config) (provider.Provider, error) {
	name := cfg.Provider
	pc := cfg.GetProviderConfig(name)

	apiKey := pc.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf(
			"API key not configured for provider %q.\n"+
				"Set it via:\n"+
				"  - config file: providers.%s.api_key\n"+
				"  - environment: LLM_API_KEY",
			name, name,
		)
	}

	// Determine model: CLI flag > config file > provider entry
	model := cfg.Model
	if model == "" {
		model = pc.Model
	}

	switch name {
	case "anthropic":
		return provider.NewAnthropicProvider(apiKey, model), nil
	default:
		// All other providers use the OpenAI-compatible API
		baseURL := pc.BaseURL
		if baseURL == "" {
			u, ok := config.KnownProviderBaseURLs[name]
			if !ok {
				return nil, fmt.Errorf("unknown provider %q; set providers.%s.base_url in config", name, name)
			}
			baseURL = u
		}
		return provider.NewOpenAIProvider(apiKey, baseURL, model), nil
	}
}

// buildSession wires configuration into a conversation session.
func buildSession(cfg *config.Config, p provider.Provider, logger *logrus.Logger) (*session.Session, error) {
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are a concise, helpful assistant."
	}

	return session.New(p, session.Config{
		SystemPrompt:    systemPrompt,
		Model:           cfg.Model,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Stream:          cfg.Stream,
		Temperature:     cfg.Temperature,
		RaiseOnError:    cfg.RaiseOnErrors,
		Logger:          logger,
	})
}
