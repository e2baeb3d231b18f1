package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the per-project configuration file name, looked up
// in the working directory and the home directory.
const DefaultConfigFile = ".nsetinspect"

// XDGConfigFile is the configuration file name inside XDGConfigDir.
const XDGConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile decodes the YAML file at path.
//
// Unknown keys are rejected so a misspelled setting does not silently fall
// back to its default. An empty file yields an empty File. A missing file
// returns ErrConfigNotFound; whether that is fatal is up to the caller.
func LoadConfigFile(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the user or the search list
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	defer f.Close()

	cf := &File{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cf.Registries == nil {
		cf.Registries = make(map[string]RegistryConfig)
	}
	return cf, nil
}

// SearchPaths lists the implicit configuration locations, highest
// precedence first: the working directory, the XDG config directory,
// then the home directory. Locations that cannot be resolved are left out.
func SearchPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	paths = append(paths, filepath.Join(XDGConfigDir(), XDGConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}

	return paths
}

// FindConfigFile returns the configuration file to load, or "" if none
// exists. An explicit configPath is used alone; otherwise the first
// regular file in SearchPaths wins.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if isRegularFile(configPath) {
			return configPath
		}
		return ""
	}

	for _, path := range SearchPaths() {
		if isRegularFile(path) {
			return path
		}
	}
	return ""
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
