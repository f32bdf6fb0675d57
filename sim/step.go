package sim

import (
	"errors"
	"log/slog"

	"github.com/meerski/menagerie/genome"
	"github.com/meerski/menagerie/lineage"
	"github.com/meerski/menagerie/registry"
	"github.com/meerski/menagerie/speciation"
	"github.com/meerski/menagerie/telemetry"
)

// Step runs one scheduling pass: aging, scheduled breeding for
// Individual-tier lineages, genetics/isolation refresh, speciation
// checks and tier evaluations. Per-lineage failures are logged and
// skipped; they never abort the rest of the pass.
func (m *Model) Step() telemetry.PassStats {
	m.tick++

	for _, e := range m.reg.AllAlive() {
		e.Age++
	}

	for _, l := range m.Lineages() {
		if l.Tier != lineage.TierIndividual {
			continue
		}
		if err := m.breedLineage(l); err != nil {
			slog.Warn("breeding pass failed", "lineage", l.ID, "error", err)
		}
	}

	m.refreshGenetics()
	m.checkSpeciation()

	for _, l := range m.Lineages() {
		m.evaluateTier(l)
	}

	return m.collector.EndPass(m.tick, m.passCounts())
}

// breedLineage runs scheduled breeding for one Individual-tier lineage:
// mature members are paired off, each pair breeding with the configured
// chance, up to the per-lineage birth budget. Stops early at the global
// cap.
func (m *Model) breedLineage(l *lineage.Lineage) error {
	alive := m.reg.AliveByLineage(l.ID)

	var eligible []*registry.Entity
	for _, e := range alive {
		if e.Age >= m.cfg.Breeding.MaturityAge {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) < 2 {
		return nil
	}

	births := 0
	bred := make(map[registry.EntityID]bool)

	for i := 0; i+1 < len(eligible) && births < m.cfg.Breeding.MaxBirthsPerLineage; i++ {
		a, b := eligible[i], eligible[i+1]
		if bred[a.ID] || bred[b.ID] {
			continue
		}
		if m.rng.Float64() >= m.cfg.Breeding.BreedChance {
			continue
		}

		if _, err := m.BreedPair(a.ID, b.ID); err != nil {
			if errors.Is(err, lineage.ErrCapacityExceeded) {
				return nil
			}
			return err
		}
		bred[a.ID] = true
		bred[b.ID] = true
		births++
	}
	return nil
}

// refreshGenetics recomputes the per-pair trait averages for every
// (species, location) pair with living members, then advances or resets
// each pair's isolation counter depending on whether inbound migration
// was recorded since the last pass.
func (m *Model) refreshGenetics() {
	cohorts := make(map[speciation.Key][]genome.Genome)
	for _, e := range m.reg.AllAlive() {
		key := speciation.Key{Species: e.Species, Location: e.Location}
		cohorts[key] = append(cohorts[key], e.Genome)
	}

	for key, cohort := range cohorts {
		m.tracker.UpdateGenetics(key, cohort)
	}

	// Pairs with recorded migration reset even when currently empty, so
	// a re-colonized region does not inherit stale isolation.
	keys := make(map[speciation.Key]struct{}, len(cohorts)+len(m.migrated))
	for key := range cohorts {
		keys[key] = struct{}{}
	}
	for key := range m.migrated {
		keys[key] = struct{}{}
	}

	for key := range keys {
		if m.migrated[key] {
			m.tracker.ResetIsolation(key)
		} else {
			m.tracker.IncrementIsolation(key)
		}
	}

	m.migrated = make(map[speciation.Key]bool)
}

// checkSpeciation evaluates the speciation decision for every tracked
// pair and records an event for each trigger. The model only reports
// the decision; emitting a world event belongs to the ecosystem
// collaborator.
func (m *Model) checkSpeciation() {
	for _, key := range m.tracker.Keys() {
		decision := m.tracker.ShouldSpeciate(key)
		if decision.Speciate {
			slog.Info("speciation triggered",
				"species", key.Species,
				"location", key.Location,
				"drift", decision.Drift,
				"isolation_ticks", decision.IsolationTicks,
			)
			m.collector.Record(telemetry.NewSpeciationEvent(m.tick, key.Species, key.Location, decision.Drift))
		}
	}
}

// evaluateTier runs one tier evaluation and records tier-change and
// archival events for whatever the transition did.
func (m *Model) evaluateTier(l *lineage.Lineage) {
	aliveBefore := m.reg.AliveByLineage(l.ID)

	tr := m.tiers.Evaluate(l, m.tick)
	if !tr.Changed() {
		return
	}

	slog.Info("tier transition",
		"lineage", l.ID,
		"from", tr.From.String(),
		"to", tr.To.String(),
		"count", tr.Count,
		"archived", tr.Archived,
	)
	m.collector.Record(telemetry.NewTierChangeEvent(m.tick, l.ID, tr.From.String(), tr.To.String()))

	for _, e := range aliveBefore {
		if !e.Alive {
			m.collector.Record(telemetry.NewDeathEvent(m.tick, e, e.CauseOfDeath))
		}
	}
}

// passCounts gathers the pass-end population counts for telemetry.
func (m *Model) passCounts() telemetry.PassStats {
	counts := telemetry.PassStats{Alive: m.reg.AliveCount()}

	for _, l := range m.lineages {
		switch l.Tier {
		case lineage.TierIndividual:
			counts.IndividualLineages++
		case lineage.TierLineage:
			counts.LineageLineages++
		case lineage.TierPopulation:
			counts.PopulationLineages++
		}
	}

	for _, snap := range m.tracker.Snapshot() {
		counts.TrackedPairs++
		if snap.Drift > counts.MaxDrift {
			counts.MaxDrift = snap.Drift
		}
		if snap.IsolationTicks > counts.MaxIsolation {
			counts.MaxIsolation = snap.IsolationTicks
		}
	}

	return counts
}

// DriftRows returns the tracker's current state as CSV rows stamped
// with the current tick.
func (m *Model) DriftRows() []telemetry.DriftRow {
	snaps := m.tracker.Snapshot()
	rows := make([]telemetry.DriftRow, 0, len(snaps))
	for _, snap := range snaps {
		rows = append(rows, telemetry.DriftRow{
			Tick:           m.tick,
			Species:        uint32(snap.Species),
			Location:       uint32(snap.Location),
			SampleSize:     snap.SampleSize,
			IsolationTicks: snap.IsolationTicks,
			Drift:          snap.Drift,
		})
	}
	return rows
}
