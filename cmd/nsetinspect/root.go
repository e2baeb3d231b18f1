// Package main provides the entry point for the nsetinspect CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/nsetinspect/internal/config"
	"github.com/nao1215/nsetinspect/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for nsetinspect.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nsetinspect",
		Short: "Inspect NSET token registries",
		Long: `nsetinspect inspects the binary token registry produced by the NSET
tokenizer (nset_vocab.bin by default).

It decodes every record, reports the token length distribution and summary
statistics, and flags tokens that are too long, contain control characters
or are not valid UTF-8.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", logFormatText, "Log format on stderr (text or json)")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .nsetinspect in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewDensityCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// Log formats accepted by --log-format.
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// setupLogger creates the stderr logger for a command and installs it as
// the slog default. Unknown formats fall back to text.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)

	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format = logFormatText
	}

	var logger *slog.Logger
	if format == logFormatJSON {
		logger = log.NewJSONLogger(cmd.ErrOrStderr(), verbose)
	} else {
		logger = log.NewLogger(cmd.ErrOrStderr(), verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// loadConfigFile finds and loads the configuration file named by --config,
// or the default .nsetinspect. A missing default file yields a nil File;
// a missing explicit file is an error.
func loadConfigFile(cmd *cobra.Command) (*config.File, error) {
	explicitPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	configPath := config.FindConfigFile(explicitPath)
	if configPath == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return nil, nil
	}

	cf, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return cf, nil
}

// commandContext returns the command context, or a background context when
// the command runs without one (as in tests calling RunE directly).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
