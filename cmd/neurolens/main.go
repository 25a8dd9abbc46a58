package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/neurolens/internal/config"
	"github.com/okian/neurolens/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	endpoint   string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:           "neurolens",
		Short:         "Behavioral screening session runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return f.setup(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), f.cfg, false)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "YAML config file (overrides NEUROLENS_CONFIG)")
	root.PersistentFlags().StringVar(&f.endpoint, "endpoint", "", "analysis service base URL override")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newServeCmd(f))
	root.AddCommand(newRunCmd(f))
	root.AddCommand(newStubCmd())
	return root
}

// setup initializes logging and loads configuration
// (defaults -> file -> env -> flags).
func (f *rootFlags) setup(ctx context.Context) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if f.configPath != "" {
		if err := os.Setenv("NEUROLENS_CONFIG", f.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.endpoint != "" {
		cfg.AnalysisEndpoint = f.endpoint
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	f.cfg = cfg
	return nil
}
