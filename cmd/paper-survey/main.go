// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-survey CLI: a synchronous
// search command and an HTTP server with the asynchronous task API.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-survey/internal/logging"
	"github.com/pdiddy/paper-survey/internal/secrets"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg and logger are populated by the root command's PersistentPreRunE.
var (
	cfg    types.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "paper-survey",
	Short: "Search and rank papers across bibliographic sources",
	Long: `paper-survey queries Semantic Scholar, OpenAlex, arXiv and Crossref in
parallel, merges duplicate records, applies venue, author, date and citation
filters, and ranks what is left.

Run a one-off search with "paper-survey search", or start the HTTP API with
"paper-survey serve" to submit searches as background tasks and poll them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		secrets.Apply(s, &c.Sources)

		cfg = c
		logger = logging.New(os.Stderr, logging.LevelFromString(cfg.Log.Level), cfg.Log.Format)
		slog.SetDefault(logger)

		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paper-survey.yaml or ~/.config/paper-survey/paper-survey.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-survey")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-survey"))
		}
	}

	viper.SetEnvPrefix("PAPER_SURVEY")
	viper.SetEnvKeyReplacer(envReplacer())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// envReplacer maps nested keys to variable names, e.g. tasks.ttl to
// PAPER_SURVEY_TASKS_TTL.
func envReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// loadConfig registers the built-in defaults on v and unmarshals the merged
// settings (defaults, config file, environment, bound flags).
func loadConfig(v *viper.Viper) (types.Config, error) {
	setDefaults(v, types.DefaultConfig())

	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	switch c.Intent.OnParseError {
	case types.PolicyFail, types.PolicyFallback:
	default:
		return types.Config{}, fmt.Errorf("intent.on_parse_error must be %q or %q, got %q",
			types.PolicyFail, types.PolicyFallback, c.Intent.OnParseError)
	}
	return c, nil
}

// setDefaults registers every key so environment variables can override
// keys that are absent from the config file.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("search.max_results_limit", d.Search.MaxResultsLimit)
	v.SetDefault("search.page_cap", d.Search.PageCap)
	v.SetDefault("search.page_size", d.Search.PageSize)
	v.SetDefault("search.overfetch_factor", d.Search.OverfetchFactor)
	v.SetDefault("search.fetch_timeout", d.Search.FetchTimeout)
	v.SetDefault("search.max_query_combinations", d.Search.MaxQueryCombinations)
	v.SetDefault("search.default_sources", d.Search.DefaultSources)
	v.SetDefault("search.max_sources", d.Search.MaxSources)

	v.SetDefault("sources.timeout", d.Sources.Timeout)
	v.SetDefault("sources.user_agent", d.Sources.UserAgent)
	v.SetDefault("sources.max_retries", d.Sources.MaxRetries)
	v.SetDefault("sources.semantic_scholar_api_key", d.Sources.SemanticScholarAPIKey)
	v.SetDefault("sources.semantic_scholar_rps", d.Sources.SemanticScholarRPS)
	v.SetDefault("sources.openalex_email", d.Sources.OpenAlexEmail)
	v.SetDefault("sources.crossref_mailto", d.Sources.CrossrefMailto)
	v.SetDefault("sources.rps", d.Sources.RPS)

	v.SetDefault("intent.on_parse_error", string(d.Intent.OnParseError))

	v.SetDefault("tasks.ttl", d.Tasks.TTL)
	v.SetDefault("tasks.sweep_interval", d.Tasks.SweepInterval)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("server.addr", d.Server.Addr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
