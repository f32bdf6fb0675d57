package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", 1)
	if err != nil {
		t.Fatalf("disabled manager errored: %v", err)
	}
	if om != nil {
		t.Fatal("empty dir should disable output")
	}

	// All methods must be nil-receiver safe
	if err := om.WriteStats(PassStats{}); err != nil {
		t.Errorf("nil WriteStats errored: %v", err)
	}
	if err := om.WriteDrift([]DriftRow{{Tick: 1}}); err != nil {
		t.Errorf("nil WriteDrift errored: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close errored: %v", err)
	}
	if om.Dir() != "" || om.Run().RunID != "" {
		t.Error("nil accessors should return zero values")
	}
}

func TestOutputManagerWritesFiles(t *testing.T) {
	dir := t.TempDir()

	om, err := NewOutputManager(dir, 42)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}

	if om.Run().RunID == "" {
		t.Error("expected a run id")
	}
	if om.Run().Seed != 42 {
		t.Errorf("expected seed 42, got %d", om.Run().Seed)
	}

	if err := om.WriteStats(PassStats{Tick: 1, Alive: 10}); err != nil {
		t.Fatalf("WriteStats failed: %v", err)
	}
	if err := om.WriteStats(PassStats{Tick: 2, Alive: 12}); err != nil {
		t.Fatalf("WriteStats failed: %v", err)
	}
	if err := om.WriteDrift([]DriftRow{{Tick: 1, Species: 1, Location: 2, Drift: 0.4}}); err != nil {
		t.Fatalf("WriteDrift failed: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Header written once, then one line per record
	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatalf("reading stats.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("expected header + 2 records, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "tick,") {
		t.Errorf("expected csv header, got %q", lines[0])
	}

	if _, err := os.Stat(filepath.Join(dir, "run.json")); err != nil {
		t.Errorf("run.json missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "drift.csv")); err != nil {
		t.Errorf("drift.csv missing: %v", err)
	}
}
