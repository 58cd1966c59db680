// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the answer-engine CLI.
// Subcommands: ask (one-shot or batch questions), serve (HTTP front door),
// history (archived runs), and version.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/logging"
	"github.com/pdiddy/answer-engine/internal/secrets"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ and .env at startup.
var loadedSecrets secrets.Set

// logger is built in PersistentPreRunE from the log section of the config.
var logger = zap.NewNop()

// secretDefault returns fallback when it is set, otherwise the secret value
// for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the answer-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "answer-engine",
	Short: "Answer questions from several knowledge sources at once",
	Long: `answer-engine answers a natural-language question by classifying it,
querying the best-suited knowledge sources (arXiv, Wikipedia, Google Scholar,
OpenAlex, web search) in parallel, and synthesizing one answer from whatever
came back. Every run carries an execution trace.

API keys are read from the config file, from ANSWER_ENGINE_* environment
variables, from files in .secrets/, or from a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var logCfg types.LogConfig
		if err := viper.UnmarshalKey("log", &logCfg); err != nil {
			return fmt.Errorf("reading log configuration: %w", err)
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logCfg.Level = "debug"
		}
		l, err := logging.New(logCfg, os.Stderr)
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(".secrets", ".env", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug("loaded secrets", zap.Strings("names", s.Names()))
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./answer-engine.yaml or ~/.config/answer-engine/answer-engine.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("answer-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "answer-engine"))
		}
	}

	setDefaults(types.DefaultConfig())

	viper.SetEnvPrefix("ANSWER_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
}

// setDefaults registers every config key with viper so environment
// variables can override keys the config file does not mention.
func setDefaults(d types.Config) {
	viper.SetDefault("llm.backend", string(d.LLM.Backend))
	viper.SetDefault("llm.compact_model", d.LLM.CompactModel)
	viper.SetDefault("llm.extended_model", d.LLM.ExtendedModel)
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.max_retries", d.LLM.MaxRetries)

	viper.SetDefault("providers.timeout", d.Providers.Timeout)
	viper.SetDefault("providers.user_agent", d.Providers.UserAgent)
	viper.SetDefault("providers.enabled", d.Providers.Enabled)
	viper.SetDefault("providers.max_items", d.Providers.MaxItems)
	viper.SetDefault("providers.wikipedia_lang", d.Providers.WikipediaLang)
	viper.SetDefault("providers.serpapi_key", "")
	viper.SetDefault("providers.google_api_key", "")
	viper.SetDefault("providers.web_model", d.Providers.WebModel)
	viper.SetDefault("providers.openalex_email", "")

	viper.SetDefault("pipeline.per_provider_timeout", d.Pipeline.PerProviderTimeout)
	viper.SetDefault("pipeline.max_providers", d.Pipeline.MaxProviders)
	viper.SetDefault("pipeline.max_synthesis_tokens", d.Pipeline.MaxSynthesisTokens)
	viper.SetDefault("pipeline.extended_threshold", d.Pipeline.ExtendedThreshold)
	viper.SetDefault("pipeline.fallback_providers", d.Pipeline.FallbackProviders)

	viper.SetDefault("server.addr", d.Server.Addr)
	viper.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	viper.SetDefault("archive.enabled", d.Archive.Enabled)
	viper.SetDefault("archive.path", d.Archive.Path)

	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.file", d.Log.File)
	viper.SetDefault("log.production", d.Log.Production)

	viper.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	viper.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
}

// loadConfig decodes the merged configuration and fills API keys that the
// config left empty from the loaded secrets.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	switch cfg.LLM.Backend {
	case types.BackendClaude:
		cfg.LLM.APIKey = secretDefault(secrets.AnthropicAPIKey, cfg.LLM.APIKey)
	default:
		cfg.LLM.APIKey = secretDefault(secrets.GoogleAPIKey, cfg.LLM.APIKey)
	}
	cfg.Providers.SerpAPIKey = secretDefault(secrets.SerpAPIKey, cfg.Providers.SerpAPIKey)
	cfg.Providers.GoogleAPIKey = secretDefault(secrets.GoogleAPIKey, cfg.Providers.GoogleAPIKey)
	cfg.Providers.OpenAlexEmail = secretDefault(secrets.OpenAlexEmail, cfg.Providers.OpenAlexEmail)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
