package telemetry

import "log/slog"

// PassStats holds aggregated statistics for one scheduling pass.
type PassStats struct {
	Tick int64 `csv:"tick"`

	// Population counts at pass end
	Alive              int `csv:"alive"`
	IndividualLineages int `csv:"individual_lineages"`
	LineageLineages    int `csv:"lineage_lineages"`
	PopulationLineages int `csv:"population_lineages"`

	// Events during the pass
	Births      int `csv:"births"`
	Deaths      int `csv:"deaths"`
	Archived    int `csv:"archived"`
	Standouts   int `csv:"standouts"`
	TierChanges int `csv:"tier_changes"`
	Speciations int `csv:"speciations"`

	// Drift across tracked (species, location) pairs
	TrackedPairs int     `csv:"tracked_pairs"`
	MaxDrift     float64 `csv:"max_drift"`
	MaxIsolation int     `csv:"max_isolation"`
}

// DriftRow is one CSV record of a (species, location) drift snapshot.
type DriftRow struct {
	Tick           int64   `csv:"tick"`
	Species        uint32  `csv:"species"`
	Location       uint32  `csv:"location"`
	SampleSize     int     `csv:"sample_size"`
	IsolationTicks int     `csv:"isolation_ticks"`
	Drift          float64 `csv:"drift"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s PassStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("tick", s.Tick),
		slog.Int("alive", s.Alive),
		slog.Int("individual_lineages", s.IndividualLineages),
		slog.Int("lineage_lineages", s.LineageLineages),
		slog.Int("population_lineages", s.PopulationLineages),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("archived", s.Archived),
		slog.Int("standouts", s.Standouts),
		slog.Int("tier_changes", s.TierChanges),
		slog.Int("speciations", s.Speciations),
		slog.Int("tracked_pairs", s.TrackedPairs),
		slog.Float64("max_drift", s.MaxDrift),
		slog.Int("max_isolation", s.MaxIsolation),
	)
}

// LogStats logs the pass stats using slog.
func (s PassStats) LogStats() {
	slog.Info("stats", "pass", s)
}
