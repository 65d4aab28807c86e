// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-enhance CLI.
// The root command enriches a JSONL paper dataset with model-written
// summaries; the index subcommands search and export the results.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-enhance/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built in PersistentPreRunE once --verbose is known.
var logger = zap.NewNop()

// rootCmd is the base command for the paper-enhance CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-enhance --data <file.jsonl>",
	Short: "Add AI-written structured summaries to a JSONL paper dataset",
	Long: `paper-enhance reads a JSONL file of paper records, asks a chat model for a
five-part summary (tldr, motivation, method, result, conclusion) of each
record's summary text, and writes every record with an added AI field to
<stem>_AI_enhanced_<LANGUAGE>.jsonl next to the input.

Records without an id and repeated ids are skipped. A record whose model call
or reply parsing fails is still written, with every summary field set to
"Error".

The model is configured through MODEL_NAME (default deepseek-chat),
MODEL_PROVIDER (openai, anthropic or gemini) and the provider's API key.
LANGUAGE (default Chinese) selects the summary language. A .env file in the
working directory is loaded first when present.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger = logging.New(verbose)
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
	RunE: runEnhance,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-enhance.yaml or ~/.config/paper-enhance/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log skipped records and other debug detail")

	rootCmd.Flags().String("data", "", "input JSONL file (.jsonl or .jsonl.zst)")
	rootCmd.Flags().String("system", "", "system prompt template (default: system.txt)")
	rootCmd.Flags().String("template", "", "human prompt template (default: template.txt)")
	rootCmd.Flags().String("report", "", "write a YAML run report to this path")
	rootCmd.MarkFlagRequired("data")

	for key, flag := range map[string]string{
		keyData:     "data",
		keySystem:   "system",
		keyTemplate: "template",
		keyReport:   "report",
	} {
		viper.BindPFlag(key, rootCmd.Flags().Lookup(flag))
	}

	configure(viper.GetViper())
}

func initConfig() {
	// .env never overrides variables already set in the environment.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "warning: loading .env:", err)
		}
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-enhance")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-enhance"))
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "error: reading config:", err)
			os.Exit(1)
		}
	}
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
