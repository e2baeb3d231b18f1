package config

import (
	"encoding/binary"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/adrg/xdg"
	"github.com/nao1215/nsetinspect/internal/corpus"
)

// Default configuration values.
const (
	// DefaultRegistryPath is the file name the tokenizer writes its vocabulary to.
	DefaultRegistryPath = "nset_vocab.bin"

	// DefaultByteOrder is the byte order of token ids. The tokenizer writes
	// its native uint32, which is little-endian on the platforms it runs on.
	DefaultByteOrder = ByteOrderLittle

	// DefaultLengthLimit matches the tokenizer's force-split guard of 32 characters.
	DefaultLengthLimit = 32

	// DefaultBuckets is the number of distinct token lengths shown in the histogram.
	DefaultBuckets = 15

	// DefaultAnomalyLimit is the number of anomaly rows shown in reports.
	// The full list is still kept in JSON output and the history database.
	DefaultAnomalyLimit = 20

	// DefaultSampleWidth is the number of characters of each anomalous token
	// shown in the anomaly table.
	DefaultSampleWidth = 25

	// DefaultCorpusRoot is the directory scanned by the density command.
	DefaultCorpusRoot = "."

	// AppName is the application name used for XDG directory paths.
	AppName = "nsetinspect"
)

// Byte order names accepted in flags and the config file.
const (
	ByteOrderLittle = "little"
	ByteOrderBig    = "big"
)

// DefaultCorpusExtensions lists the source file extensions the tokenizer reads.
var DefaultCorpusExtensions = slices.Clone(corpus.DefaultExtensions)

// DefaultCorpusConcurrency is the number of files probed at once by the corpus scanner.
var DefaultCorpusConcurrency = runtime.NumCPU()

// Config holds all configuration options for nsetinspect.
// It is populated from defaults, then the config file, then CLI flags,
// and passed down explicitly rather than kept in global state.
type Config struct {
	// RegistryPath is the registry file to inspect.
	RegistryPath string

	// ByteOrder is the byte order of token ids: "little" or "big".
	ByteOrder string

	// LengthLimit is the longest token length that is not flagged.
	LengthLimit int

	// Buckets is the number of distinct lengths shown in the histogram.
	Buckets int

	// AnomalyLimit is the number of anomaly rows shown in the text and
	// Markdown reports.
	AnomalyLimit int

	// SampleWidth is the number of characters of each token sample shown.
	SampleWidth int

	// MatchEscapeSequences also flags tokens containing a literal `\x`
	// as binary artifacts.
	MatchEscapeSequences bool

	// Strict fails the inspection when the final record is truncated
	// instead of treating it as the end of the registry.
	Strict bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .nsetinspect in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// FileConfig holds the settings loaded from the config file.
	FileConfig *File

	// JSONReport enables JSON report output instead of the text report.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the text report.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// CorpusRoot is the source tree compared against the registry.
	// When empty, no density is computed during inspection.
	CorpusRoot string

	// CorpusExtensions lists the file extensions counted as corpus.
	CorpusExtensions []string

	// CorpusConcurrency is the number of files probed at once.
	CorpusConcurrency int

	// SaveHistory enables saving inspection summaries to the database.
	SaveHistory bool

	// DBDir is the directory of the SQLite history database.
	// Defaults to the XDG data directory (~/.local/share/nsetinspect on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		RegistryPath:      DefaultRegistryPath,
		ByteOrder:         DefaultByteOrder,
		LengthLimit:       DefaultLengthLimit,
		Buckets:           DefaultBuckets,
		AnomalyLimit:      DefaultAnomalyLimit,
		SampleWidth:       DefaultSampleWidth,
		CorpusExtensions:  append([]string(nil), DefaultCorpusExtensions...),
		CorpusConcurrency: DefaultCorpusConcurrency,
		SaveHistory:       true,
		DBDir:             XDGDataDir(),
	}
}

// ApplyFile merges config file settings into c. Registry settings are
// looked up for c.RegistryPath, so the registry path must be final before
// calling ApplyFile unless the file itself names the registry.
func (c *Config) ApplyFile(cf *File) {
	if cf == nil {
		return
	}
	c.FileConfig = cf

	if cf.Registry != "" && c.RegistryPath == DefaultRegistryPath {
		c.RegistryPath = cf.Registry
	}

	rc := cf.GetRegistryConfig(c.RegistryPath)
	if rc.ByteOrder != "" {
		c.ByteOrder = rc.ByteOrder
	}
	if rc.LengthLimit != 0 {
		c.LengthLimit = rc.LengthLimit
	}
	if rc.Buckets != 0 {
		c.Buckets = rc.Buckets
	}
	if rc.AnomalyLimit != 0 {
		c.AnomalyLimit = rc.AnomalyLimit
	}
	if rc.SampleWidth != 0 {
		c.SampleWidth = rc.SampleWidth
	}
	if rc.MatchEscapeSequences {
		c.MatchEscapeSequences = true
	}
	if rc.Strict {
		c.Strict = true
	}

	if len(cf.Corpus.Extensions) > 0 {
		c.CorpusExtensions = cf.Corpus.Extensions
	}
	if cf.Corpus.Concurrency != 0 {
		c.CorpusConcurrency = cf.Corpus.Concurrency
	}

	if cf.History.Disabled {
		c.SaveHistory = false
	}
	if cf.History.Dir != "" {
		c.DBDir = cf.History.Dir
	}
}

// Order returns the binary.ByteOrder named by c.ByteOrder.
// Unknown names fall back to little-endian; Validate rejects them first.
func (c *Config) Order() binary.ByteOrder {
	order, err := ParseByteOrder(c.ByteOrder)
	if err != nil {
		return binary.LittleEndian
	}
	return order
}

// ParseByteOrder converts a byte order name into a binary.ByteOrder.
func ParseByteOrder(name string) (binary.ByteOrder, error) {
	switch name {
	case ByteOrderLittle:
		return binary.LittleEndian, nil
	case ByteOrderBig:
		return binary.BigEndian, nil
	default:
		return nil, ErrInvalidByteOrder
	}
}

// XDGDataDir returns the XDG data directory for nsetinspect.
// On Linux: ~/.local/share/nsetinspect
// On macOS: ~/Library/Application Support/nsetinspect
// On Windows: %LOCALAPPDATA%\nsetinspect
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for nsetinspect.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if c.RegistryPath == "" {
		return ErrNoRegistry
	}

	if _, err := ParseByteOrder(c.ByteOrder); err != nil {
		return err
	}

	if c.LengthLimit <= 0 {
		return ErrInvalidLengthLimit
	}

	if c.Buckets <= 0 {
		return ErrInvalidBucketCap
	}

	if c.AnomalyLimit < 0 {
		return ErrInvalidAnomalyLimit
	}

	if c.SampleWidth <= 0 {
		return ErrInvalidSampleWidth
	}

	if c.CorpusConcurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
