package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/nsetinspect/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrCorpusNotFound is returned when the corpus root does not exist.
var ErrCorpusNotFound = errors.New("corpus root not found")

// File kinds reported in model.CorpusSummary.Files.
const (
	KindC     = "c"
	KindH     = "h"
	KindCPP   = "cpp"
	KindOther = "other"
)

// DefaultExtensions lists the source file extensions scanned by default.
var DefaultExtensions = []string{".c", ".h", ".cpp", ".hpp", ".cc"}

// DefaultConcurrency is the number of files probed at once when
// WithConcurrency is not given.
const DefaultConcurrency = 8

// Scanner sums the size of source files under a directory.
type Scanner struct {
	// extensions holds the lowercase extensions to keep, with leading dot.
	extensions map[string]struct{}

	// concurrency is the maximum number of files probed at once.
	concurrency int

	// logger is used for skipped files and scan progress.
	logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithExtensions sets the file extensions counted as corpus.
// Extensions may be given with or without the leading dot.
func WithExtensions(exts []string) Option {
	return func(s *Scanner) {
		if len(exts) == 0 {
			return
		}
		s.extensions = extensionSet(exts)
	}
}

// WithConcurrency sets the maximum number of files probed at once.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets a custom logger for the scanner.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a Scanner with the given options.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		extensions:  extensionSet(DefaultExtensions),
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Scan walks root and returns the summed size and per-kind counts of the
// matching files. Empty files are not counted. Files that disappear or
// cannot be stat'ed during the scan are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, root string) (model.CorpusSummary, error) {
	start := time.Now()

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.CorpusSummary{}, fmt.Errorf("%w: %s", ErrCorpusNotFound, root)
		}
		return model.CorpusSummary{}, fmt.Errorf("failed to stat corpus root: %w", err)
	}
	if !info.IsDir() {
		return model.CorpusSummary{}, fmt.Errorf("corpus root is not a directory: %s", root)
	}

	paths, err := s.walk(ctx, root)
	if err != nil {
		return model.CorpusSummary{}, err
	}

	s.logger.Debug("corpus walk complete",
		"root", root,
		"candidates", len(paths),
		"concurrency", s.concurrency,
	)

	summary := model.CorpusSummary{
		Root: root,
		Files: map[string]int{
			KindC:   0,
			KindH:   0,
			KindCPP: 0,
		},
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			fi, err := os.Stat(path)
			if err != nil {
				s.logger.Warn("skipping corpus file", "path", path, "error", err)
				return nil
			}
			if fi.Size() == 0 {
				return nil
			}

			mu.Lock()
			summary.TotalBytes += fi.Size()
			summary.Files[Kind(path)]++
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.CorpusSummary{}, err
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

// walk collects regular files with a matching extension, skipping hidden
// directories below root.
func (s *Scanner) walk(ctx context.Context, root string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := s.extensions[strings.ToLower(filepath.Ext(d.Name()))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus: %w", err)
	}

	return paths, nil
}

// Kind returns the file kind used in corpus counts:
// .c and .cc are "c", .h and .hpp are "h", .cpp is "cpp", anything else "other".
func Kind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".cc":
		return KindC
	case ".h", ".hpp":
		return KindH
	case ".cpp":
		return KindCPP
	default:
		return KindOther
	}
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}
