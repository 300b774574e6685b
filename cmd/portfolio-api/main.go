package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Prot0type/portfolio-website/config"
	"github.com/Prot0type/portfolio-website/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "portfolio-api",
		Short:         "Portfolio website API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newServeCmd(),
		newInitSchemaCmd(),
		newVerifyTokenCmd(),
	)
	return root
}

// loadRuntime loads configuration and builds the logger every command starts from
func loadRuntime(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger.With(
		zap.String("app", cfg.AppName),
		zap.String("environment", cfg.Environment),
	), nil
}
