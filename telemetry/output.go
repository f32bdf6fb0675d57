package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
)

// RunInfo identifies one simulation run in the output directory.
type RunInfo struct {
	RunID     string `json:"run_id"`
	Seed      int64  `json:"seed"`
	StartedAt string `json:"started_at"`
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir       string
	run       RunInfo
	statsFile *os.File
	driftFile *os.File

	// Track if headers have been written
	statsHeaderWritten bool
	driftHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the
// output directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, seed int64) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{
		dir: dir,
		run: RunInfo{
			RunID:     uuid.NewString(),
			Seed:      seed,
			StartedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}

	f, err := os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	om.statsFile = f

	f, err = os.Create(filepath.Join(dir, "drift.csv"))
	if err != nil {
		om.statsFile.Close()
		return nil, fmt.Errorf("creating drift.csv: %w", err)
	}
	om.driftFile = f

	if err := om.writeRunInfo(); err != nil {
		om.Close()
		return nil, err
	}

	return om, nil
}

// Run returns the run metadata.
func (om *OutputManager) Run() RunInfo {
	if om == nil {
		return RunInfo{}
	}
	return om.run
}

func (om *OutputManager) writeRunInfo() error {
	data, err := json.MarshalIndent(om.run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run info: %w", err)
	}
	path := filepath.Join(om.dir, "run.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing run.json: %w", err)
	}
	return nil
}

// WriteStats writes a pass stats record to stats.csv.
func (om *OutputManager) WriteStats(stats PassStats) error {
	if om == nil {
		return nil
	}

	records := []PassStats{stats}

	if !om.statsHeaderWritten {
		if err := gocsv.Marshal(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		om.statsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}

	return nil
}

// WriteDrift writes drift snapshot rows to drift.csv.
func (om *OutputManager) WriteDrift(rows []DriftRow) error {
	if om == nil || len(rows) == 0 {
		return nil
	}

	if !om.driftHeaderWritten {
		if err := gocsv.Marshal(rows, om.driftFile); err != nil {
			return fmt.Errorf("writing drift: %w", err)
		}
		om.driftHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(rows, om.driftFile); err != nil {
			return fmt.Errorf("writing drift: %w", err)
		}
	}

	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.statsFile != nil {
		if err := om.statsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.driftFile != nil {
		if err := om.driftFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
