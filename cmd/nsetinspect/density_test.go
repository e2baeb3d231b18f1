package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/nsetinspect/internal/model"
)

// createCorpus builds a small source tree and returns its root.
func createCorpus(t *testing.T, dir string) string {
	t.Helper()

	root := filepath.Join(dir, "src")
	files := map[string]int{
		"main.c":           600,
		"util.h":           200,
		"lib/vector.cpp":   150,
		"lib/empty.c":      0,
		"README.md":        1000,
		".git/objects/x.c": 5000,
	}
	for name, size := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// TestRunDensityCmd tests the density command.
func TestRunDensityCmd(t *testing.T) {
	t.Parallel()

	t.Run("with registry", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		root := createCorpus(t, dir)
		vocab := filepath.Join(dir, "vocab.bin")
		if err := os.WriteFile(vocab, make([]byte, 19), 0600); err != nil {
			t.Fatal(err)
		}

		output, err := runCLI(t, "density", "--config", cfgPath, "--vocab", vocab, root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{
			"[*] Scanning Corpus at: " + root,
			"Total Bytes:  950",
			".c / .cc:     1 files",
			".h / .hpp:    1 files",
			".cpp:         1 files",
			"[Comparison]",
			"Vocab/Corpus Ratio: 2.0000%",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("without registry", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		root := createCorpus(t, dir)

		output, err := runCLI(t, "density", "--config", cfgPath, "--vocab", filepath.Join(dir, "none.bin"), root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "[!] Vocabulary file not found. Run the tokenizer first.") {
			t.Errorf("expected missing vocabulary message, got:\n%s", output)
		}
		if strings.Contains(output, "[Comparison]") {
			t.Errorf("expected no comparison, got:\n%s", output)
		}
	})

	t.Run("missing corpus", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")

		if _, err := runCLI(t, "density", "--config", cfgPath, filepath.Join(dir, "nowhere")); err == nil {
			t.Fatal("expected error for missing corpus root")
		}
	})

	t.Run("extensions from config", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "corpus:\n  extensions: [\".md\"]\n")
		root := createCorpus(t, dir)

		output, err := runCLI(t, "density", "--config", cfgPath, "--vocab", filepath.Join(dir, "none.bin"), root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "Total Bytes:  1,000") {
			t.Errorf("expected only the markdown file counted, got:\n%s", output)
		}
	})
}

// TestWriteDensity tests the comparison decision on the registry file.
func TestWriteDensity(t *testing.T) {
	t.Parallel()

	summary := model.CorpusSummary{Root: "src", TotalBytes: 400, Files: map[string]int{"c": 2}}

	t.Run("registry present", func(t *testing.T) {
		t.Parallel()

		vocab := filepath.Join(t.TempDir(), "vocab.bin")
		if err := os.WriteFile(vocab, make([]byte, 4), 0600); err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if err := writeDensity(&buf, summary, vocab); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Vocab/Corpus Ratio: 1.0000%") {
			t.Errorf("expected ratio, got:\n%s", buf.String())
		}
	})

	t.Run("registry missing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := writeDensity(&buf, summary, filepath.Join(t.TempDir(), "none.bin")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(buf.String(), vocabNotFoundMessage) {
			t.Errorf("expected missing vocabulary message last, got:\n%s", buf.String())
		}
	})
}
