package pipeline

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/nao1215/nsetinspect/internal/analysis"
	"github.com/nao1215/nsetinspect/internal/config"
	"github.com/nao1215/nsetinspect/internal/corpus"
	"github.com/nao1215/nsetinspect/internal/model"
	"github.com/nao1215/nsetinspect/internal/registry"
)

// AnalyzeStep decodes the registry file and aggregates its statistics and
// anomalies into the inspection.
type AnalyzeStep struct {
	// classifier flags anomalous tokens.
	classifier analysis.Classifier

	// order is the byte order of token ids.
	order binary.ByteOrder

	// strict turns a truncated final record into an error.
	strict bool

	// logger for structured logging.
	logger *slog.Logger
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithClassifier sets the anomaly classifier.
func WithClassifier(c analysis.Classifier) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.classifier = c
	}
}

// WithByteOrder sets the byte order of token ids.
func WithByteOrder(order binary.ByteOrder) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		if order != nil {
			s.order = order
		}
	}
}

// WithStrict makes a truncated final record fail the step with
// registry.ErrTruncatedRecord.
func WithStrict(strict bool) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.strict = strict
	}
}

// WithAnalyzeLogger sets a custom logger for the analyze step.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.logger = logger
	}
}

// NewAnalyzeStep creates a new analyze step with the default classifier
// and little-endian ids.
func NewAnalyzeStep(opts ...AnalyzeStepOption) *AnalyzeStep {
	s := &AnalyzeStep{
		classifier: analysis.DefaultClassifier(),
		order:      binary.LittleEndian,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do executes the analyze step. The registry file is closed on every path.
func (s *AnalyzeStep) Do(_ context.Context, inspection *model.Inspection) error {
	f, err := registry.Open(inspection.RegistryPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat registry: %w", err)
	}

	inspection.RegistryBytes = info.Size()
	inspection.ByteOrder = byteOrderName(s.order)
	inspection.LengthLimit = s.classifier.LengthLimit

	dec := registry.NewDecoder(f, registry.WithByteOrder(s.order))
	inspection.Analysis = analysis.Analyze(dec.All(), s.classifier)
	inspection.End = dec.End().String()

	switch dec.End() {
	case registry.EndTruncated:
		inspection.TruncatedAt = dec.Offset()
		s.logger.Debug("registry ends with a truncated record",
			"registry", inspection.RegistryPath,
			"offset", dec.Offset(),
			"trailing_bytes", inspection.RegistryBytes-dec.Offset(),
			"records", dec.Count(),
		)
		if s.strict {
			return fmt.Errorf("%w at byte %d", registry.ErrTruncatedRecord, dec.Offset())
		}
	case registry.EndError:
		return fmt.Errorf("failed to read registry after %d records: %w", dec.Count(), dec.Err())
	}

	if inspection.IsEmpty() {
		s.logger.Info("registry is empty", "registry", inspection.RegistryPath)
	}

	return nil
}

// byteOrderName returns the config name of a byte order.
func byteOrderName(order binary.ByteOrder) string {
	if order == binary.BigEndian {
		return config.ByteOrderBig
	}
	return config.ByteOrderLittle
}

// DensityStep compares the registry size with the corpus it was built from.
type DensityStep struct {
	// root is the corpus directory.
	root string

	// scanner measures the corpus.
	scanner *corpus.Scanner

	// logger for structured logging.
	logger *slog.Logger
}

// DensityStepOption configures a DensityStep.
type DensityStepOption func(*DensityStep)

// WithDensityLogger sets a custom logger for the density step.
func WithDensityLogger(logger *slog.Logger) DensityStepOption {
	return func(s *DensityStep) {
		s.logger = logger
	}
}

// NewDensityStep creates a density step scanning root with scanner.
// A nil scanner uses corpus.NewScanner() defaults.
func NewDensityStep(root string, scanner *corpus.Scanner, opts ...DensityStepOption) *DensityStep {
	if scanner == nil {
		scanner = corpus.NewScanner()
	}

	s := &DensityStep{
		root:    root,
		scanner: scanner,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DensityStep) Name() string {
	return "density"
}

// Do executes the density step.
func (s *DensityStep) Do(ctx context.Context, inspection *model.Inspection) error {
	summary, err := s.scanner.Scan(ctx, s.root)
	if err != nil {
		return fmt.Errorf("failed to scan corpus: %w", err)
	}

	inspection.Density = model.NewDensity(summary, inspection.RegistryBytes)

	s.logger.Debug("corpus scanned",
		"root", s.root,
		"files", summary.TotalFiles(),
		"bytes", summary.TotalBytes,
		"elapsed", summary.Elapsed,
	)

	return nil
}

// Recorder stores inspections. *database.HistoryDB implements it.
type Recorder interface {
	SaveInspection(ctx context.Context, inspection *model.Inspection) (int64, error)
}

// RecordStep saves the inspection to the history database.
// A failed save is logged and does not fail the inspection.
type RecordStep struct {
	// recorder stores the inspection.
	recorder Recorder

	// logger for structured logging.
	logger *slog.Logger
}

// RecordStepOption configures a RecordStep.
type RecordStepOption func(*RecordStep)

// WithRecordLogger sets a custom logger for the record step.
func WithRecordLogger(logger *slog.Logger) RecordStepOption {
	return func(s *RecordStep) {
		s.logger = logger
	}
}

// NewRecordStep creates a record step saving to recorder.
func NewRecordStep(recorder Recorder, opts ...RecordStepOption) *RecordStep {
	s := &RecordStep{
		recorder: recorder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do executes the record step.
func (s *RecordStep) Do(ctx context.Context, inspection *model.Inspection) error {
	if inspection.Analysis == nil {
		s.logger.Debug("nothing to record", "registry", inspection.RegistryPath)
		return nil
	}

	id, err := s.recorder.SaveInspection(ctx, inspection)
	if err != nil {
		s.logger.Warn("failed to save inspection history",
			"registry", inspection.RegistryPath,
			"error", err,
		)
		return nil
	}

	s.logger.Debug("inspection saved",
		"registry", inspection.RegistryPath,
		"id", id,
		"run_id", inspection.ID,
	)

	return nil
}

// DefaultPipelineConfig holds the settings used to build the standard
// inspection pipeline.
type DefaultPipelineConfig struct {
	// Classifier flags anomalous tokens.
	Classifier analysis.Classifier

	// ByteOrder is the byte order of token ids.
	ByteOrder binary.ByteOrder

	// Strict fails on a truncated final record.
	Strict bool

	// CorpusRoot enables the density step when non-empty.
	CorpusRoot string

	// Scanner measures the corpus. Nil uses corpus defaults.
	Scanner *corpus.Scanner

	// Recorder enables the record step when non-nil.
	Recorder Recorder

	// Logger is passed to every step.
	Logger *slog.Logger
}

// NewDefaultPipelineConfig derives the pipeline settings from cfg.
// Recorder is left nil; the caller opens the history database.
func NewDefaultPipelineConfig(cfg *config.Config, logger *slog.Logger) DefaultPipelineConfig {
	if logger == nil {
		logger = slog.Default()
	}

	return DefaultPipelineConfig{
		Classifier: analysis.Classifier{
			LengthLimit:  cfg.LengthLimit,
			MatchEscapes: cfg.MatchEscapeSequences,
		},
		ByteOrder:  cfg.Order(),
		Strict:     cfg.Strict,
		CorpusRoot: cfg.CorpusRoot,
		Scanner: corpus.NewScanner(
			corpus.WithExtensions(cfg.CorpusExtensions),
			corpus.WithConcurrency(cfg.CorpusConcurrency),
			corpus.WithLogger(logger),
		),
		Logger: logger,
	}
}

// DefaultPipeline creates a pipeline with the standard steps: analyze,
// then density when a corpus root is set, then record when a recorder is set.
func DefaultPipeline(dc DefaultPipelineConfig, pipelineOpts ...Option) *Pipeline {
	logger := dc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := New(append([]Option{WithLogger(logger)}, pipelineOpts...)...)

	p.AddStep(NewAnalyzeStep(
		WithClassifier(dc.Classifier),
		WithByteOrder(dc.ByteOrder),
		WithStrict(dc.Strict),
		WithAnalyzeLogger(logger),
	))

	if dc.CorpusRoot != "" {
		p.AddStep(NewDensityStep(dc.CorpusRoot, dc.Scanner, WithDensityLogger(logger)))
	}

	if dc.Recorder != nil {
		p.AddStep(NewRecordStep(dc.Recorder, WithRecordLogger(logger)))
	}

	return p
}
