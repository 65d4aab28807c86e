// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-enhance/internal/enhance"
	"github.com/pdiddy/paper-enhance/internal/llm"
	"github.com/pdiddy/paper-enhance/internal/prompt"
	"github.com/pdiddy/paper-enhance/internal/secrets"
)

func runEnhance(cmd *cobra.Command, args []string) error {
	keys, err := secrets.Load(secrets.DefaultDir, logger)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		names := make([]string, 0, len(keys))
		for k := range keys {
			names = append(names, k)
		}
		logger.Debug("loaded secrets", zap.Strings("keys", names))
	}

	cfg, err := enhanceConfig(viper.GetViper(), keys)
	if err != nil {
		return err
	}

	// Both templates must exist before the output file is touched.
	prompts, err := prompt.Load(cfg.SystemPath, cfg.TemplatePath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := llm.NewChatModel(ctx, cfg.AIConfig)
	if err != nil {
		return err
	}
	logger.Info("using model",
		zap.String("provider", string(cfg.Provider)),
		zap.String("model", model.Name()),
		zap.Bool("api_key", cfg.APIKey != ""),
	)

	started := time.Now()
	summary, runErr := enhance.Run(ctx, cfg, llm.NewPromptInvoker(prompts, model), logger)
	finished := time.Now()

	if cfg.ReportPath != "" {
		report := enhance.NewReport(cfg, summary, started, finished, runErr)
		if err := enhance.WriteReport(cfg.ReportPath, report); err != nil {
			logger.Error("writing run report", zap.Error(err))
		}
	}

	if runErr != nil {
		if ctx.Err() != nil {
			logger.Warn("interrupted", zap.String("output", summary.Output), zap.Int("accepted", summary.Accepted))
		}
		return runErr
	}

	if summary.HasDegraded() {
		logger.Warn("some records carry the placeholder summary",
			zap.Int("degraded", summary.Degraded), zap.Int("accepted", summary.Accepted))
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary.Output)
	return nil
}
