package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nao1215/nsetinspect/internal/config"
	"github.com/nao1215/nsetinspect/internal/corpus"
	"github.com/nao1215/nsetinspect/internal/model"
	"github.com/nao1215/nsetinspect/internal/report"
	"github.com/spf13/cobra"
)

// vocabNotFoundMessage is printed when the density command has no registry
// to compare against.
const vocabNotFoundMessage = "\n[!] Vocabulary file not found. Run the tokenizer first.\n"

// NewDensityCmd creates the density command.
func NewDensityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "density [corpus-root]",
		Short: "Compare the registry size with its source corpus",
		Long: `Density walks a source tree, sums the size of the C and C++ files the
tokenizer reads, and compares the total with the size of the registry.

Hidden directories are skipped and empty files are not counted. The
extensions and scan concurrency can be set in the corpus section of the
configuration file.

Examples:
  # Scan the current directory against nset_vocab.bin
  nsetinspect density

  # Scan a kernel tree against a specific registry
  nsetinspect density ~/src/linux --vocab build/nset_vocab.bin`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDensityCmd,
	}

	cmd.Flags().String("vocab", config.DefaultRegistryPath,
		"Registry file to compare against")
	cmd.Flags().Int("concurrency", config.DefaultCorpusConcurrency,
		"Number of files probed at once")

	return cmd
}

// runDensityCmd executes the density command.
func runDensityCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	cf, err := loadConfigFile(cmd)
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.CorpusRoot = config.DefaultCorpusRoot
	if len(args) > 0 {
		cfg.CorpusRoot = args[0]
	}

	cfg.RegistryPath, err = cmd.Flags().GetString("vocab")
	if err != nil {
		return err
	}
	cfg.ApplyFile(cf)

	if cmd.Flags().Changed("concurrency") {
		if cfg.CorpusConcurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	scanner := corpus.NewScanner(
		corpus.WithExtensions(cfg.CorpusExtensions),
		corpus.WithConcurrency(cfg.CorpusConcurrency),
		corpus.WithLogger(logger),
	)

	summary, err := scanner.Scan(commandContext(cmd), cfg.CorpusRoot)
	if err != nil {
		return err
	}

	return writeDensity(cmd.OutOrStdout(), summary, cfg.RegistryPath)
}

// writeDensity writes the corpus summary and, when the registry exists,
// the registry/corpus comparison.
func writeDensity(w io.Writer, summary model.CorpusSummary, registryPath string) error {
	writer := report.NewSimpleWriter(w)

	info, err := os.Stat(registryPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat registry: %w", err)
		}
		if _, err := writer.WriteCorpus(summary); err != nil {
			return err
		}
		_, err = io.WriteString(w, vocabNotFoundMessage)
		return err
	}

	_, err = writer.WriteDensity(model.NewDensity(summary, info.Size()))
	return err
}
