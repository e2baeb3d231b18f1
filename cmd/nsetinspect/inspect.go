package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/nsetinspect/internal/config"
	"github.com/nao1215/nsetinspect/internal/database"
	"github.com/nao1215/nsetinspect/internal/model"
	"github.com/nao1215/nsetinspect/internal/pipeline"
	"github.com/nao1215/nsetinspect/internal/report"
	"github.com/spf13/cobra"
)

// defaultParallel is the number of registries inspected at once.
const defaultParallel = 4

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [registry...]",
		Short: "Inspect a token registry",
		Long: `Inspect decodes a token registry and reports:
- Token count and average, minimum and maximum length
- The token length distribution
- Anomalous tokens: too long, containing control characters, or not valid UTF-8

The registry defaults to nset_vocab.bin in the current directory. A final
record cut short is treated as the end of the registry unless --strict is set.

Examples:
  # Inspect nset_vocab.bin in the current directory
  nsetinspect inspect

  # Inspect a specific registry
  nsetinspect inspect build/nset_vocab.bin

  # Inspect several registries concurrently
  nsetinspect inspect run1.bin run2.bin run3.bin

  # Registry written on a big-endian machine
  nsetinspect inspect --byte-order big vocab.bin

  # Compare against the corpus the registry was built from
  nsetinspect inspect --corpus ~/src/linux

  # Write a Markdown report; the text report is still printed
  nsetinspect inspect -m -o report.md`,
		Args: cobra.ArbitraryArgs,
		RunE: runInspectCmd,
	}

	// Registry selection flags
	cmd.Flags().StringP("file", "f", config.DefaultRegistryPath,
		"Registry file to inspect")
	cmd.Flags().String("byte-order", config.DefaultByteOrder,
		"Byte order of token ids (little or big)")
	cmd.Flags().Bool("strict", false,
		"Fail when the final record is truncated")

	// Classification flags
	cmd.Flags().IntP("length-limit", "l", config.DefaultLengthLimit,
		"Flag tokens longer than this many characters")
	cmd.Flags().Bool("match-escapes", false,
		`Also flag valid tokens containing a literal "\x" as binary artifacts (off by default)`)

	// Layout flags
	cmd.Flags().IntP("buckets", "b", config.DefaultBuckets,
		"Number of distinct lengths shown in the distribution")
	cmd.Flags().IntP("anomaly-limit", "n", config.DefaultAnomalyLimit,
		"Number of anomalies listed in the report")

	// Density and history flags
	cmd.Flags().String("corpus", "",
		"Corpus directory to compare the registry size against")
	cmd.Flags().Bool("no-history", false,
		"Do not save the inspection to the history database")
	cmd.Flags().IntP("parallel", "p", defaultParallel,
		"Number of registries inspected concurrently")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runInspectCmd executes the inspect command.
func runInspectCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	cf, err := loadConfigFile(cmd)
	if err != nil {
		return err
	}

	paths, err := registryPaths(cmd, args)
	if err != nil {
		return err
	}
	batch := len(paths) > 1

	// Registry specific settings from the config file only apply to a
	// single inspection; a batch shares one pipeline configuration.
	cfg, err := buildInspectConfig(cmd, cf, paths[0], !batch)
	if err != nil {
		return err
	}
	if !batch {
		paths[0] = cfg.RegistryPath
	} else if cf != nil && len(cf.Registries) > 0 {
		logger.Warn("batch inspection uses default registry settings only; per-registry settings are ignored",
			"registries", len(cf.Registries))
	}

	ctx := commandContext(cmd)

	dc := pipeline.NewDefaultPipelineConfig(cfg, logger)
	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("inspection history disabled", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			dc.Recorder = db
		}
	}

	output, closeOutput, err := openOutput(cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOutput()

	writer := newReportWriter(cfg, output, cmd.OutOrStdout())

	if batch {
		parallel, err := cmd.Flags().GetInt("parallel")
		if err != nil {
			return err
		}
		return runBatchInspection(ctx, dc, paths, parallel, writer, logger)
	}

	inspection := model.NewInspection(paths[0])
	if err := pipeline.DefaultPipeline(dc).Execute(ctx, inspection); err != nil {
		return fmt.Errorf("failed to inspect registry: %w", err)
	}

	if _, err := writer.Write(inspection); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// runBatchInspection inspects several registries concurrently and writes
// the reports in argument order. Failed registries are reported together
// after the successful ones.
func runBatchInspection(ctx context.Context, dc pipeline.DefaultPipelineConfig, paths []string, parallel int, writer report.Writer, logger *slog.Logger) error {
	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline { return pipeline.DefaultPipeline(dc) },
		pipeline.WithConcurrency(parallel),
		pipeline.WithBatchLogger(logger),
	)

	inspections, err := bp.ProcessBatch(ctx, paths)

	var errs []error
	for i, inspection := range inspections {
		if inspection == nil {
			continue
		}
		if inspection.Error != nil {
			errs = append(errs, fmt.Errorf("failed to inspect %s: %w", paths[i], inspection.Error))
			continue
		}
		if _, werr := writer.Write(inspection); werr != nil {
			return fmt.Errorf("failed to write report: %w", werr)
		}
	}

	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// registryPaths returns the registries named on the command line. --file
// comes first when given explicitly; with no arguments it supplies the
// default registry.
func registryPaths(cmd *cobra.Command, args []string) ([]string, error) {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return []string{file}, nil
	}
	if cmd.Flags().Changed("file") {
		return append([]string{file}, args...), nil
	}
	return append([]string(nil), args...), nil
}

// buildInspectConfig creates a Config for registryPath from defaults, the
// config file and the command flags, in that order of precedence.
// When perRegistry is false the file's per-registry entries are ignored.
func buildInspectConfig(cmd *cobra.Command, cf *config.File, registryPath string, perRegistry bool) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.RegistryPath = registryPath
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	if cf != nil {
		if !perRegistry {
			shared := *cf
			shared.Registries = nil
			cf = &shared
		}
		cfg.ApplyFile(cf)
	}

	if err := applyInspectFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

// applyInspectFlags overrides cfg with the flags the user set explicitly.
// Flags left at their defaults do not mask config file settings.
func applyInspectFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("byte-order") {
		if cfg.ByteOrder, err = flags.GetString("byte-order"); err != nil {
			return err
		}
	}
	if flags.Changed("strict") {
		if cfg.Strict, err = flags.GetBool("strict"); err != nil {
			return err
		}
	}
	if flags.Changed("length-limit") {
		if cfg.LengthLimit, err = flags.GetInt("length-limit"); err != nil {
			return err
		}
	}
	if flags.Changed("match-escapes") {
		if cfg.MatchEscapeSequences, err = flags.GetBool("match-escapes"); err != nil {
			return err
		}
	}
	if flags.Changed("buckets") {
		if cfg.Buckets, err = flags.GetInt("buckets"); err != nil {
			return err
		}
	}
	if flags.Changed("anomaly-limit") {
		if cfg.AnomalyLimit, err = flags.GetInt("anomaly-limit"); err != nil {
			return err
		}
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return err
	}
	if noHistory {
		cfg.SaveHistory = false
	}

	if cfg.CorpusRoot, err = flags.GetString("corpus"); err != nil {
		return err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return err
	}

	return nil
}

// openOutput opens the report destination. An empty path yields a nil
// writer, meaning standard output.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // Report already written
}

// newReportWriter selects the report writer for cfg. With a report file the
// chosen format goes to file and the text report still goes to stdout;
// without one the chosen format goes to stdout.
func newReportWriter(cfg *config.Config, file, stdout io.Writer) report.Writer {
	layout := []report.Option{
		report.WithAnomalyLimit(cfg.AnomalyLimit),
		report.WithSampleWidth(cfg.SampleWidth),
		report.WithBucketCap(cfg.Buckets),
		report.WithVerbose(cfg.Verbose),
	}

	dest := stdout
	if file != nil {
		dest = file
	}

	var chosen report.Writer
	switch {
	case cfg.JSONReport:
		chosen = report.NewJSONWriter(dest, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		chosen = report.NewMarkdownWriter(dest, layout...)
	default:
		chosen = report.NewSimpleWriter(dest, layout...)
	}

	if file == nil {
		return chosen
	}
	if !cfg.JSONReport && !cfg.MarkdownReport {
		return chosen
	}
	return report.NewMultiWriter(chosen, report.NewSimpleWriter(stdout, layout...))
}
