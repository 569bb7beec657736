package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	cfgPkg "github.com/xhad/wikiquiz/pkg/config"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath  string
	provider    string
	ollamaURL   string
	dbURL       string
	model       string
	temperature float64
	logLevel    string
}

func main() {
	if err := newRootCommand(&options{}).Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCommand(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wikiquiz",
		Short:         "Generate multiple-choice quizzes from Wikipedia articles",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	flags.StringVar(&opts.provider, "provider", "", "LLM provider (ollama or openai)")
	flags.StringVar(&opts.ollamaURL, "ollama-url", "", "LLM server URL")
	flags.StringVar(&opts.dbURL, "db-url", "", "PostgreSQL connection string (in-memory store when empty)")
	flags.StringVar(&opts.model, "model", "", "LLM model to use")
	flags.Float64Var(&opts.temperature, "temperature", 0, "Set the LLM temperature")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newGenerateCommand(opts),
		newHistoryCommand(opts),
		newShowCommand(opts),
	)
	return rootCmd
}

// loadConfig reads the config file and applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command, opts *options) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg, cmd, opts)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("  %s", e.Error())
		}
		return nil, fmt.Errorf("invalid configuration (%d problem(s))", len(errs))
	}
	return cfg, nil
}

func applyFlagOverrides(cfg *cfgPkg.Config, cmd *cobra.Command, opts *options) {
	changed := func(name string) bool {
		return cmd.Flags().Changed(name)
	}
	if changed("provider") {
		cfg.LLM.Provider = opts.provider
	}
	if changed("ollama-url") {
		cfg.LLM.BaseURL = opts.ollamaURL
	}
	if changed("db-url") {
		cfg.Database.URL = opts.dbURL
	}
	if changed("model") {
		cfg.LLM.Model = opts.model
	}
	if changed("temperature") {
		cfg.LLM.Temperature = opts.temperature
	}
	if changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
}
