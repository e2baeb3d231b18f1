package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/nsetinspect/internal/config"
	"github.com/nao1215/nsetinspect/internal/registry"
	"github.com/nao1215/nsetinspect/internal/report"
)

// TestNewInspectCmd tests the inspect command flags.
func TestNewInspectCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInspectCmd()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "file", shorthand: "f", defValue: config.DefaultRegistryPath},
		{name: "byte-order", defValue: config.ByteOrderLittle},
		{name: "strict", defValue: "false"},
		{name: "length-limit", shorthand: "l", defValue: "32"},
		{name: "match-escapes", defValue: "false"},
		{name: "buckets", shorthand: "b", defValue: "15"},
		{name: "anomaly-limit", shorthand: "n", defValue: "20"},
		{name: "corpus", defValue: ""},
		{name: "no-history", defValue: "false"},
		{name: "parallel", shorthand: "p", defValue: "4"},
		{name: "json", shorthand: "j", defValue: "false"},
		{name: "markdown", shorthand: "m", defValue: "false"},
		{name: "output", shorthand: "o", defValue: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// TestMatchEscapesUsage tests that the help text states escape matching is opt-in.
func TestMatchEscapesUsage(t *testing.T) {
	t.Parallel()

	flag := NewInspectCmd().Flags().Lookup("match-escapes")
	if flag == nil {
		t.Fatal("expected match-escapes flag")
	}
	if !strings.Contains(flag.Usage, "off by default") {
		t.Errorf("expected usage to mention the default, got %q", flag.Usage)
	}
}

// TestRunInspectCmd tests inspecting registries end to end.
func TestRunInspectCmd(t *testing.T) {
	t.Parallel()

	t.Run("text report", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		path := writeRegistry(t, dir, "vocab.bin", nil,
			record{1, "int"}, record{2, "return"}, record{3, "a\x01b"})

		output, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{
			"[*] Inspecting NSET Registry: " + path,
			"Total Unique Tokens: 3",
			"Average Length:      4.00 chars",
			"Max Length:          6 chars",
			"Min Length:          3 chars",
			"--- Token Length Distribution ---",
			"[!] Anomalies Detected (1)",
			`    3       | Control Char    | a\x01b`,
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("file flag", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		path := writeRegistry(t, dir, "vocab.bin", nil, record{1, "int"})

		output, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", "-f", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "[+] No obvious anomalies detected (clean vocabulary).") {
			t.Errorf("expected clean verdict, got:\n%s", output)
		}
	})

	t.Run("escape sequences need match-escapes", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		path := writeRegistry(t, dir, "vocab.bin", nil,
			record{1, "int"}, record{2, `a\x41`})

		output, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "[+] No obvious anomalies detected (clean vocabulary).") {
			t.Errorf("expected escape text to pass by default, got:\n%s", output)
		}

		output, err = runCLI(t, "inspect", "--config", cfgPath, "--no-history", "--match-escapes", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"[!] Anomalies Detected (1)", "Binary Artifact"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("empty registry", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		path := writeRegistry(t, dir, "empty.bin", nil)

		output, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "Registry is empty.") {
			t.Errorf("expected empty message, got:\n%s", output)
		}
		if strings.Contains(output, "[Statistics]") {
			t.Errorf("expected no statistics for empty registry, got:\n%s", output)
		}
	})

	t.Run("missing registry", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")

		output, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", filepath.Join(dir, "missing.bin"))
		if !errors.Is(err, registry.ErrRegistryNotFound) {
			t.Fatalf("expected ErrRegistryNotFound, got %v", err)
		}
		if output != "" {
			t.Errorf("expected no report, got:\n%s", output)
		}
	})

	t.Run("truncated registry", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		path := writeRegistry(t, dir, "cut.bin", []byte{9, 0, 0}, record{1, "int"}, record{2, "char"})

		output, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "Total Unique Tokens: 2") {
			t.Errorf("expected complete records only, got:\n%s", output)
		}

		_, err = runCLI(t, "inspect", "--config", cfgPath, "--no-history", "--strict", path)
		if !errors.Is(err, registry.ErrTruncatedRecord) {
			t.Fatalf("expected ErrTruncatedRecord in strict mode, got %v", err)
		}
	})

	t.Run("big endian ids", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		// Little-endian id 1 reads as 16777216 big-endian.
		path := writeRegistry(t, dir, "be.bin", nil, record{1, "a\x02"})

		output, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", "--byte-order", "big", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "16777216") {
			t.Errorf("expected big-endian id in anomaly table, got:\n%s", output)
		}
	})

	t.Run("json report to file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		path := writeRegistry(t, dir, "vocab.bin", nil, record{7, "static"}, record{8, "\xff\xfe"})
		outPath := filepath.Join(dir, "reports", "vocab.json")

		stdout, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", "-j", "-o", outPath, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "[*] Inspecting NSET Registry:") {
			t.Errorf("expected text report on stdout, got:\n%s", stdout)
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}

		var decoded report.JSONReport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}
		if decoded.Version == "" {
			t.Error("expected version in report")
		}
		if got := decoded.Inspection.Analysis.Summary.Count; got != 2 {
			t.Errorf("expected 2 tokens, got %d", got)
		}
		want := map[string]int{"length_exceeded": 0, "control_char": 0, "binary_artifact": 1}
		if diff := cmp.Diff(want, decoded.Categories); diff != "" {
			t.Errorf("categories mismatch (-want +got):\n%s", diff)
		}
		if got := decoded.Inspection.Analysis.Anomalies[0].Text; got != "<BINARY_DATA_fffe>" {
			t.Errorf("expected binary placeholder, got %q", got)
		}
	})

	t.Run("markdown report", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		path := writeRegistry(t, dir, "vocab.bin", nil, record{1, strings.Repeat("x", 40)})

		output, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", "-m", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "# NSET Registry Inspection") {
			t.Errorf("expected markdown title, got:\n%s", output)
		}
		if !strings.Contains(output, "pie") {
			t.Errorf("expected mermaid pie chart, got:\n%s", output)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		path := writeRegistry(t, dir, "vocab.bin", nil, record{1, "int"})

		_, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", "-j", "-m", path)
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Fatalf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("invalid byte order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		path := writeRegistry(t, dir, "vocab.bin", nil, record{1, "int"})

		_, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", "--byte-order", "middle", path)
		if !errors.Is(err, config.ErrInvalidByteOrder) {
			t.Fatalf("expected ErrInvalidByteOrder, got %v", err)
		}
	})

	t.Run("corpus density", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		path := writeRegistry(t, dir, "vocab.bin", nil, record{1, "int"})

		corpusDir := filepath.Join(dir, "src")
		if err := os.MkdirAll(corpusDir, 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(corpusDir, "main.c"), make([]byte, 800), 0600); err != nil {
			t.Fatal(err)
		}

		output, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", "--corpus", corpusDir, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 8 registry bytes / 800 corpus bytes
		if !strings.Contains(output, "Vocab/Corpus Ratio: 1.0000%") {
			t.Errorf("expected ratio, got:\n%s", output)
		}
	})

	t.Run("batch with a missing registry", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		first := writeRegistry(t, dir, "a.bin", nil, record{1, "int"})
		second := writeRegistry(t, dir, "b.bin", nil, record{1, "char"}, record{2, "long"})
		missing := filepath.Join(dir, "missing.bin")

		output, err := runCLI(t, "inspect", "--config", cfgPath, "--no-history", first, missing, second)
		if !errors.Is(err, registry.ErrRegistryNotFound) {
			t.Fatalf("expected ErrRegistryNotFound, got %v", err)
		}

		firstAt := strings.Index(output, "Registry: "+first)
		secondAt := strings.Index(output, "Registry: "+second)
		if firstAt < 0 || secondAt < 0 {
			t.Fatalf("expected both reports, got:\n%s", output)
		}
		if firstAt > secondAt {
			t.Error("expected reports in argument order")
		}
	})
}

// TestInspectHistory tests that inspections are saved and listed.
func TestInspectHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	path := writeRegistry(t, dir, "vocab.bin", nil, record{1, "int"}, record{2, "a\x01"})

	if _, err := runCLI(t, "inspect", "--config", cfgPath, path); err != nil {
		t.Fatalf("first inspection failed: %v", err)
	}

	writeRegistry(t, dir, "vocab.bin", nil, record{1, "int"}, record{3, "\xff"})
	if _, err := runCLI(t, "inspect", "--config", cfgPath, path); err != nil {
		t.Fatalf("second inspection failed: %v", err)
	}

	output, err := runCLI(t, "history", "--config", cfgPath, path)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(output, "(2 inspections)") {
		t.Errorf("expected two inspections, got:\n%s", output)
	}
	if !strings.Contains(output, "Binary Artifact: 1") {
		t.Errorf("expected category summary, got:\n%s", output)
	}

	output, err = runCLI(t, "history", "--config", cfgPath, "--compare", path)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	for _, want := range []string{"New anomalies (1)", "Resolved anomalies (1)", "Binary Artifact", "Control Char"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected comparison to contain %q, got:\n%s", want, output)
		}
	}

	output, err = runCLI(t, "history", "--config", cfgPath, "--list-registries")
	if err != nil {
		t.Fatalf("list registries failed: %v", err)
	}
	if !strings.Contains(output, "Inspected registries (1)") {
		t.Errorf("expected one registry, got:\n%s", output)
	}
}

// TestRegistryPaths tests how positional arguments and --file combine.
func TestRegistryPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		file string
		want []string
	}{
		{name: "default registry", want: []string{config.DefaultRegistryPath}},
		{name: "file flag only", file: "a.bin", want: []string{"a.bin"}},
		{name: "arguments only", args: []string{"a.bin", "b.bin"}, want: []string{"a.bin", "b.bin"}},
		{name: "file flag first", args: []string{"b.bin"}, file: "a.bin", want: []string{"a.bin", "b.bin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewInspectCmd()
			if tt.file != "" {
				if err := cmd.Flags().Set("file", tt.file); err != nil {
					t.Fatal(err)
				}
			}

			got, err := registryPaths(cmd, tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("paths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestBuildInspectConfig tests the precedence of defaults, file and flags.
func TestBuildInspectConfig(t *testing.T) {
	t.Parallel()

	cf := &config.File{
		Defaults: config.RegistryConfig{LengthLimit: 40, Buckets: 10},
		Registries: map[string]config.RegistryConfig{
			"be.bin": {ByteOrder: config.ByteOrderBig},
		},
	}

	tests := []struct {
		name        string
		path        string
		perRegistry bool
		flags       map[string]string
		wantLimit   int
		wantBuckets int
		wantOrder   string
	}{
		{
			name:        "file defaults",
			path:        "vocab.bin",
			perRegistry: true,
			wantLimit:   40,
			wantBuckets: 10,
			wantOrder:   config.ByteOrderLittle,
		},
		{
			name:        "registry entry",
			path:        "be.bin",
			perRegistry: true,
			wantLimit:   40,
			wantBuckets: 10,
			wantOrder:   config.ByteOrderBig,
		},
		{
			name:        "registry entry ignored in batch",
			path:        "be.bin",
			perRegistry: false,
			wantLimit:   40,
			wantBuckets: 10,
			wantOrder:   config.ByteOrderLittle,
		},
		{
			name:        "flags win",
			path:        "be.bin",
			perRegistry: true,
			flags:       map[string]string{"length-limit": "12", "byte-order": "little"},
			wantLimit:   12,
			wantBuckets: 10,
			wantOrder:   config.ByteOrderLittle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd()
			inspect, _, err := cmd.Find([]string{"inspect"})
			if err != nil {
				t.Fatal(err)
			}
			// Merge the root's persistent flags into the subcommand's set.
			inspect.InheritedFlags()
			for name, value := range tt.flags {
				if err := inspect.Flags().Set(name, value); err != nil {
					t.Fatal(err)
				}
			}

			cfg, err := buildInspectConfig(inspect, cf, tt.path, tt.perRegistry)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.LengthLimit != tt.wantLimit {
				t.Errorf("expected length limit %d, got %d", tt.wantLimit, cfg.LengthLimit)
			}
			if cfg.Buckets != tt.wantBuckets {
				t.Errorf("expected %d buckets, got %d", tt.wantBuckets, cfg.Buckets)
			}
			if cfg.ByteOrder != tt.wantOrder {
				t.Errorf("expected byte order %q, got %q", tt.wantOrder, cfg.ByteOrder)
			}
		})
	}
}
