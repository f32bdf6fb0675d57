// Package sim owns all population-model state for one simulation
// instance and orchestrates scheduling passes over it. A Model is
// constructed per instance and passed by reference; there are no
// package-level singletons, and tests build independent models instead
// of resetting globals.
package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/meerski/menagerie/config"
	"github.com/meerski/menagerie/genome"
	"github.com/meerski/menagerie/lineage"
	"github.com/meerski/menagerie/registry"
	"github.com/meerski/menagerie/speciation"
	"github.com/meerski/menagerie/telemetry"
)

// Options holds model construction options.
type Options struct {
	Seed int64
}

// Model is the population model context: the entity registry, the
// breeding engine, the isolation/drift tracker and the tier manager,
// plus the lineages whose tiers this core owns. All mutating operations
// are single-threaded; one scheduling pass owns the model exclusively.
type Model struct {
	cfg *config.Config
	rng *rand.Rand

	reg       *registry.Registry
	breeder   *genome.Breeder
	tracker   *speciation.Tracker
	tiers     *lineage.Manager
	lineages  map[registry.LineageID]*lineage.Lineage
	collector *telemetry.Collector

	// migrated records (species, location) pairs that saw inbound
	// migration since the last pass; cleared every Step.
	migrated map[speciation.Key]bool

	tick       int64
	nextEntity registry.EntityID
}

// New creates a model from configuration. The seed drives the single
// random stream shared by breeding, sampling and speciation.
func New(cfg *config.Config, opts Options) *Model {
	rng := rand.New(rand.NewSource(opts.Seed))
	reg := registry.New()

	m := &Model{
		cfg:       cfg,
		rng:       rng,
		reg:       reg,
		collector: telemetry.NewCollector(),
		lineages:  make(map[registry.LineageID]*lineage.Lineage),
		migrated:  make(map[speciation.Key]bool),
	}

	m.breeder = genome.NewBreeder(genome.BreedParams{
		BlendWeight:   cfg.Breeding.BlendWeight,
		MutationSigma: cfg.Breeding.MutationSigma,
		RateSigma:     cfg.Breeding.RateSigma,
	}, rng)

	m.tracker = speciation.NewTracker(speciation.Params{
		Baseline:          cfg.Speciation.Baseline,
		MinIsolationTicks: cfg.Speciation.MinIsolationTicks,
		DriftThreshold:    cfg.Speciation.DriftThreshold,
		ChanceScale:       cfg.Speciation.ChanceScale,
	}, rng)

	m.tiers = lineage.NewManager(lineage.Params{
		LineageThreshold:    cfg.Population.LineageThreshold,
		PopulationThreshold: cfg.Population.PopulationThreshold,
		IndividualThreshold: cfg.Population.IndividualThreshold,
		LineageStandouts:    cfg.Population.LineageStandouts,
		PopulationStandouts: cfg.Population.PopulationStandouts,
		GlobalCap:           cfg.Population.GlobalCap,
	}, reg, rng, m.allocateID)

	return m
}

// Tick returns the current pass counter.
func (m *Model) Tick() int64 { return m.tick }

// Registry returns the entity registry.
func (m *Model) Registry() *registry.Registry { return m.reg }

// Tracker returns the isolation/drift tracker.
func (m *Model) Tracker() *speciation.Tracker { return m.tracker }

// Collector returns the telemetry collector.
func (m *Model) Collector() *telemetry.Collector { return m.collector }

// EnsureLineage returns the lineage with the given id, creating it at
// tier Individual if this core has not seen it before.
func (m *Model) EnsureLineage(id registry.LineageID) *lineage.Lineage {
	l, ok := m.lineages[id]
	if !ok {
		l = lineage.NewLineage(id)
		m.lineages[id] = l
	}
	return l
}

// Lineage returns the lineage with the given id, if tracked.
func (m *Model) Lineage(id registry.LineageID) (*lineage.Lineage, bool) {
	l, ok := m.lineages[id]
	return l, ok
}

// Lineages returns all tracked lineages ordered by id.
func (m *Model) Lineages() []*lineage.Lineage {
	out := make([]*lineage.Lineage, 0, len(m.lineages))
	for _, l := range m.lineages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Founder describes an entity seeded from outside the model.
type Founder struct {
	Species          registry.SpeciesID
	Lineage          registry.LineageID
	Location         registry.LocationID
	Genome           genome.Genome
	PlayerControlled bool
	Renown           float64
}

// AddFounder registers a founder entity. The global cap applies to
// founders like any other materialization.
func (m *Model) AddFounder(f Founder) (*registry.Entity, error) {
	if m.reg.AliveCount() >= m.cfg.Population.GlobalCap {
		return nil, lineage.ErrCapacityExceeded
	}

	e := &registry.Entity{
		ID:               m.allocateID(),
		Species:          f.Species,
		Lineage:          f.Lineage,
		Location:         f.Location,
		Genome:           f.Genome,
		BornTick:         m.tick,
		Alive:            true,
		PlayerControlled: f.PlayerControlled,
		Renown:           f.Renown,
	}
	if err := m.reg.Add(e); err != nil {
		return nil, fmt.Errorf("adding founder: %w", err)
	}

	m.EnsureLineage(f.Lineage)
	m.collector.Record(telemetry.NewBirthEvent(m.tick, e))
	return e, nil
}

// BreedPair produces one offspring from two registered parents. The
// child inherits species, lineage and location from parent A, and its
// generation is one past the deeper parent. Fails with
// ErrCapacityExceeded at the global cap.
func (m *Model) BreedPair(aID, bID registry.EntityID) (*registry.Entity, error) {
	a, err := m.reg.Get(aID)
	if err != nil {
		return nil, err
	}
	b, err := m.reg.Get(bID)
	if err != nil {
		return nil, err
	}
	if m.reg.AliveCount() >= m.cfg.Population.GlobalCap {
		return nil, lineage.ErrCapacityExceeded
	}

	child := &registry.Entity{
		ID:         m.allocateID(),
		Species:    a.Species,
		Lineage:    a.Lineage,
		Location:   a.Location,
		Genome:     m.breeder.Breed(a.Genome, b.Genome),
		BornTick:   m.tick,
		Alive:      true,
		Generation: max(a.Generation, b.Generation) + 1,
	}
	if err := m.reg.Add(child); err != nil {
		return nil, fmt.Errorf("adding offspring: %w", err)
	}

	a.Children = append(a.Children, child.ID)
	b.Children = append(b.Children, child.ID)
	m.collector.Record(telemetry.NewBirthEvent(m.tick, child))
	return child, nil
}

// MarkDead records a lifecycle death through the registry and the event
// stream. No-op on absent or already-dead ids, like the registry call.
func (m *Model) MarkDead(id registry.EntityID, cause string) {
	e, err := m.reg.Get(id)
	if err != nil || !e.Alive {
		return
	}
	m.reg.MarkDead(id, m.tick, cause)
	m.collector.Record(telemetry.NewDeathEvent(m.tick, e, cause))
}

// Migrate moves an entity to a new location and records the inbound
// migration for the destination (species, location) pair, which resets
// that pair's isolation on the next pass. No-op on absent ids.
func (m *Model) Migrate(id registry.EntityID, to registry.LocationID) {
	e, err := m.reg.Get(id)
	if err != nil {
		return
	}
	m.reg.MoveLocation(id, to)
	m.migrated[speciation.Key{Species: e.Species, Location: to}] = true
}

// SpawnStandout materializes one entity from a compressed lineage.
// Unavailable (ok=false) unless the lineage is compressed with a
// non-empty genome; fails with ErrCapacityExceeded at the global cap.
func (m *Model) SpawnStandout(id registry.LineageID, sp registry.SpeciesID, loc registry.LocationID) (*registry.Entity, bool, error) {
	l, ok := m.lineages[id]
	if !ok {
		return nil, false, nil
	}
	e, ok, err := m.tiers.SpawnStandout(l, sp, loc, m.tick)
	if err != nil || !ok {
		return nil, false, err
	}
	m.collector.Record(telemetry.NewStandoutEvent(m.tick, e))
	return e, true, nil
}

func (m *Model) allocateID() registry.EntityID {
	m.nextEntity++
	return m.nextEntity
}
