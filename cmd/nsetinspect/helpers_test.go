package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// record is one registry entry written by writeRegistry.
type record struct {
	id   uint32
	text string
}

// writeRegistry writes records in the registry layout (little-endian ids)
// followed by trailing bytes, and returns the file path.
func writeRegistry(t *testing.T, dir, name string, trailing []byte, records ...record) string {
	t.Helper()

	var buf bytes.Buffer
	for _, r := range records {
		var id [4]byte
		binary.LittleEndian.PutUint32(id[:], r.id)
		buf.Write(id[:])
		buf.WriteByte(byte(len(r.text)))
		buf.WriteString(r.text)
	}
	buf.Write(trailing)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write registry: %v", err)
	}
	return path
}

// writeConfig writes a config file keeping the history database under dir,
// so tests never touch the user's data directory or config file.
func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()

	content := "history:\n  dir: " + filepath.Join(dir, "db") + "\n" + extra
	path := filepath.Join(dir, "nsetinspect.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
