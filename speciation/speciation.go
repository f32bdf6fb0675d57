// Package speciation tracks genetic drift of geographically isolated
// sub-populations and decides when a speciation event triggers.
package speciation

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/meerski/menagerie/genome"
	"github.com/meerski/menagerie/registry"
)

// Params holds the speciation thresholds.
type Params struct {
	Baseline          float64 // species-wide baseline trait value
	MinIsolationTicks int     // isolation must exceed this to speciate
	DriftThreshold    float64 // drift must exceed this to speciate
	ChanceScale       float64 // p = (drift - threshold) * scale
}

// DefaultParams returns the standard speciation thresholds.
func DefaultParams() Params {
	return Params{
		Baseline:          50.0,
		MinIsolationTicks: 10000,
		DriftThreshold:    0.3,
		ChanceScale:       0.01,
	}
}

// Key identifies one tracked (species, location) sub-population.
type Key struct {
	Species  registry.SpeciesID
	Location registry.LocationID
}

// Record is the tracked state for one sub-population.
type Record struct {
	TraitMeans     map[string]float64
	SampleSize     int
	IsolationTicks int
	Drift          float64
}

// Decision is the outcome of one speciation evaluation, carrying the
// drift and isolation values it was based on so callers can log and
// reproduce it.
type Decision struct {
	Speciate       bool
	Drift          float64
	IsolationTicks int
}

// PairSnapshot is a read-only drift/isolation view for one pair,
// exposed to the ecosystem collaborator.
type PairSnapshot struct {
	Species        registry.SpeciesID
	Location       registry.LocationID
	SampleSize     int
	IsolationTicks int
	Drift          float64
}

// Tracker maintains one Record per (species, location) pair. The caller
// drives it once per scheduling pass: refresh genetics, then increment
// or reset isolation depending on observed migration.
type Tracker struct {
	params  Params
	rng     *rand.Rand
	records map[Key]*Record
}

// NewTracker creates a tracker with the given thresholds and random source.
func NewTracker(params Params, rng *rand.Rand) *Tracker {
	return &Tracker{
		params:  params,
		rng:     rng,
		records: make(map[Key]*Record),
	}
}

// UpdateGenetics recomputes the per-trait running averages for the pair
// from the given cohort of currently-alive members.
func (t *Tracker) UpdateGenetics(key Key, cohort []genome.Genome) {
	rec := t.record(key)

	values := make(map[string][]float64)
	for _, g := range cohort {
		for _, gene := range g.Genes {
			values[gene.Name] = append(values[gene.Name], gene.Value)
		}
	}

	means := make(map[string]float64, len(values))
	for name, vs := range values {
		means[name] = stat.Mean(vs, nil)
	}

	rec.TraitMeans = means
	rec.SampleSize = len(cohort)
}

// IncrementIsolation advances the pair's isolation counter by one pass.
func (t *Tracker) IncrementIsolation(key Key) {
	t.record(key).IsolationTicks++
}

// ResetIsolation zeroes the pair's isolation counter; called on the pass
// inbound migration is observed.
func (t *Tracker) ResetIsolation(key Key) {
	t.record(key).IsolationTicks = 0
}

// ComputeDrift recomputes and stores the pair's genetic drift: the mean
// absolute deviation of each tracked trait's average from the baseline,
// normalized by the maximum possible deviation. A pair with no sampled
// members has drift 0. The result lies in [0, 1] by construction.
func (t *Tracker) ComputeDrift(key Key) float64 {
	rec := t.record(key)
	if rec.SampleSize == 0 || len(rec.TraitMeans) == 0 {
		rec.Drift = 0
		return 0
	}

	var sum float64
	for _, mean := range rec.TraitMeans {
		d := mean - t.params.Baseline
		if d < 0 {
			d = -d
		}
		sum += d
	}

	rec.Drift = sum / (t.params.Baseline * float64(len(rec.TraitMeans)))
	return rec.Drift
}

// ShouldSpeciate evaluates the speciation decision for a pair. It is
// deterministically false unless the isolation and drift thresholds are
// both exceeded; past the gate it is a single Bernoulli draw with
// probability proportional to the excess drift, so repeated calls at the
// same state trigger independently. No random draw is consumed while
// gated.
func (t *Tracker) ShouldSpeciate(key Key) Decision {
	rec := t.record(key)
	drift := t.ComputeDrift(key)

	decision := Decision{Drift: drift, IsolationTicks: rec.IsolationTicks}
	if rec.IsolationTicks <= t.params.MinIsolationTicks || drift <= t.params.DriftThreshold {
		return decision
	}

	p := (drift - t.params.DriftThreshold) * t.params.ChanceScale
	decision.Speciate = t.rng.Float64() < p
	return decision
}

// Lookup returns a copy of the pair's record.
func (t *Tracker) Lookup(key Key) (Record, bool) {
	rec, ok := t.records[key]
	if !ok {
		return Record{}, false
	}
	out := *rec
	out.TraitMeans = make(map[string]float64, len(rec.TraitMeans))
	for name, mean := range rec.TraitMeans {
		out.TraitMeans[name] = mean
	}
	return out, true
}

// Keys returns every tracked pair in deterministic order.
func (t *Tracker) Keys() []Key {
	keys := make([]Key, 0, len(t.records))
	for key := range t.records {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Species != keys[j].Species {
			return keys[i].Species < keys[j].Species
		}
		return keys[i].Location < keys[j].Location
	})
	return keys
}

// Snapshot returns drift/isolation views for every tracked pair, in
// deterministic order.
func (t *Tracker) Snapshot() []PairSnapshot {
	keys := t.Keys()
	out := make([]PairSnapshot, 0, len(keys))
	for _, key := range keys {
		rec := t.records[key]
		out = append(out, PairSnapshot{
			Species:        key.Species,
			Location:       key.Location,
			SampleSize:     rec.SampleSize,
			IsolationTicks: rec.IsolationTicks,
			Drift:          rec.Drift,
		})
	}
	return out
}

func (t *Tracker) record(key Key) *Record {
	rec, ok := t.records[key]
	if !ok {
		rec = &Record{TraitMeans: make(map[string]float64)}
		t.records[key] = rec
	}
	return rec
}
