package config

// RegistryConfig holds inspection settings that can differ per registry file.
// Zero values mean "not set" and leave the current setting unchanged.
type RegistryConfig struct {
	// ByteOrder is the byte order of token ids: "little" or "big".
	ByteOrder string `yaml:"byte_order,omitempty"`

	// LengthLimit is the longest token length that is not flagged.
	LengthLimit int `yaml:"length_limit,omitempty"`

	// Buckets is the number of distinct lengths shown in the histogram.
	Buckets int `yaml:"buckets,omitempty"`

	// AnomalyLimit is the number of anomaly rows shown in the report.
	AnomalyLimit int `yaml:"anomaly_limit,omitempty"`

	// SampleWidth is the number of characters of each token sample shown.
	SampleWidth int `yaml:"sample_width,omitempty"`

	// MatchEscapeSequences also flags tokens containing a literal `\x`
	// as binary artifacts.
	MatchEscapeSequences bool `yaml:"match_escape_sequences,omitempty"`

	// Strict fails the inspection when the final record is truncated.
	Strict bool `yaml:"strict,omitempty"`
}

// CorpusConfig holds settings for the corpus scanner.
type CorpusConfig struct {
	// Extensions lists the source file extensions that count towards the corpus.
	Extensions []string `yaml:"extensions,omitempty"`

	// Concurrency is the number of files probed at once.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// HistoryConfig controls the inspection history database.
type HistoryConfig struct {
	// Disabled turns off saving inspections.
	Disabled bool `yaml:"disabled,omitempty"`

	// Dir overrides the database directory.
	Dir string `yaml:"dir,omitempty"`
}

// File represents the structure of the .nsetinspect configuration file.
type File struct {
	// Registry is the default registry path.
	Registry string `yaml:"registry,omitempty"`

	// Defaults applies to every registry unless overridden in Registries.
	Defaults RegistryConfig `yaml:"defaults,omitempty"`

	// Registries maps registry paths to their specific settings.
	Registries map[string]RegistryConfig `yaml:"registries,omitempty"`

	// Corpus configures the corpus scanner.
	Corpus CorpusConfig `yaml:"corpus,omitempty"`

	// History configures the inspection history.
	History HistoryConfig `yaml:"history,omitempty"`
}

// GetRegistryConfig returns the settings for a registry path, merging the
// path-specific entry over the defaults.
func (cf *File) GetRegistryConfig(path string) RegistryConfig {
	result := cf.Defaults

	override, ok := cf.Registries[path]
	if !ok {
		return result
	}

	if override.ByteOrder != "" {
		result.ByteOrder = override.ByteOrder
	}
	if override.LengthLimit != 0 {
		result.LengthLimit = override.LengthLimit
	}
	if override.Buckets != 0 {
		result.Buckets = override.Buckets
	}
	if override.AnomalyLimit != 0 {
		result.AnomalyLimit = override.AnomalyLimit
	}
	if override.SampleWidth != 0 {
		result.SampleWidth = override.SampleWidth
	}
	if override.MatchEscapeSequences {
		result.MatchEscapeSequences = true
	}
	if override.Strict {
		result.Strict = true
	}

	return result
}
