package lineage

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/meerski/menagerie/genome"
	"github.com/meerski/menagerie/popgen"
	"github.com/meerski/menagerie/registry"
)

// ErrCapacityExceeded is returned when spawning a standout would push
// the global live-entity count past the hard cap.
var ErrCapacityExceeded = errors.New("entity capacity exceeded")

// Params holds the tier thresholds and caps.
type Params struct {
	LineageThreshold    int // alive count at which Individual compresses to Lineage
	PopulationThreshold int // alive count at which Lineage compresses to Population
	IndividualThreshold int // alive count below which Lineage returns to Individual
	LineageStandouts    int // members kept alive through Individual -> Lineage
	PopulationStandouts int // members kept alive through Lineage -> Population
	GlobalCap           int // hard cap on live entities process-wide
}

// DefaultParams returns the standard tier thresholds.
func DefaultParams() Params {
	return Params{
		LineageThreshold:    150,
		PopulationThreshold: 500,
		IndividualThreshold: 20,
		LineageStandouts:    50,
		PopulationStandouts: 10,
		GlobalCap:           5000,
	}
}

// Transition reports the outcome of one tier evaluation. From == To
// means no change. Count is the member count the evaluation acted on.
type Transition struct {
	From     Tier
	To       Tier
	Count    int
	Archived int
}

// Changed reports whether the evaluation moved the lineage's tier.
func (t Transition) Changed() bool { return t.From != t.To }

// Manager runs tier evaluations and standout spawning against the
// shared entity registry. Entity ids for spawned standouts come from the
// injected allocator so the simulation context keeps a single id space.
type Manager struct {
	params Params
	reg    *registry.Registry
	rng    *rand.Rand
	nextID func() registry.EntityID
}

// NewManager creates a tier manager.
func NewManager(params Params, reg *registry.Registry, rng *rand.Rand, nextID func() registry.EntityID) *Manager {
	return &Manager{params: params, reg: reg, rng: rng, nextID: nextID}
}

// Evaluate runs one tier evaluation for a lineage. At most one tier step
// is taken per call, in either direction: a lineage that jumps from 10
// to 600 members still lands on Lineage first and catches Population on
// the next pass.
func (m *Manager) Evaluate(l *Lineage, tick int64) Transition {
	alive := m.reg.AliveByLineage(l.ID)

	count := len(alive)
	if l.Tier != TierIndividual && l.PopulationEstimate > count {
		count = l.PopulationEstimate
	}

	tr := Transition{From: l.Tier, To: l.Tier, Count: count}

	switch l.Tier {
	case TierIndividual:
		if count >= m.params.LineageThreshold {
			tr.Archived = m.compress(l, alive, m.params.LineageStandouts, tick)
			l.Tier = TierLineage
		}
	case TierLineage:
		switch {
		case count >= m.params.PopulationThreshold:
			tr.Archived = m.compress(l, alive, m.params.PopulationStandouts, tick)
			l.Tier = TierPopulation
		case count < m.params.IndividualThreshold:
			l.Tier = TierIndividual
		}
	case TierPopulation:
		if count < m.params.PopulationThreshold {
			l.Tier = TierLineage
		}
	}

	l.PopulationEstimate = count
	tr.To = l.Tier
	return tr
}

// SpawnStandout materializes one entity from a compressed lineage by
// sampling its population genome. Unavailable (ok=false) at tier
// Individual or without a non-empty genome; fails with
// ErrCapacityExceeded at the global cap without mutating anything.
func (m *Manager) SpawnStandout(l *Lineage, sp registry.SpeciesID, loc registry.LocationID, tick int64) (*registry.Entity, bool, error) {
	if l.Tier == TierIndividual || l.Genome.Empty() {
		return nil, false, nil
	}
	if m.reg.AliveCount() >= m.params.GlobalCap {
		return nil, false, ErrCapacityExceeded
	}

	e := &registry.Entity{
		ID:         m.nextID(),
		Species:    sp,
		Lineage:    l.ID,
		Location:   loc,
		Genome:     l.Genome.Sample(m.rng),
		BornTick:   tick,
		Alive:      true,
		Generation: l.GenerationDepth,
	}
	if err := m.reg.Add(e); err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// compress rebuilds the lineage's genome digest from the alive cohort,
// keeps the top-ranked standouts, and archives the rest through the
// normal death transition. Returns the number archived.
//
// The digest is only refreshed from a non-empty cohort: an
// estimate-driven compression with no tracked members keeps the prior
// digest rather than erasing it.
func (m *Manager) compress(l *Lineage, alive []*registry.Entity, keep int, tick int64) int {
	if len(alive) > 0 {
		cohort := make([]genome.Genome, len(alive))
		for i, e := range alive {
			cohort[i] = e.Genome
		}
		l.Genome = popgen.Build(cohort)
	} else if l.Genome == nil {
		l.Genome = popgen.New()
	}

	ranked := rankStandouts(alive)

	archived := 0
	for i := keep; i < len(ranked); i++ {
		m.reg.MarkDead(ranked[i].ID, tick, registry.CauseArchived)
		archived++
	}
	return archived
}

// rankStandouts orders a cohort by archival priority: player-controlled
// entities first, then higher renown, then most recently born. Entity id
// breaks exact ties so the ranking is stable across runs.
func rankStandouts(cohort []*registry.Entity) []*registry.Entity {
	ranked := make([]*registry.Entity, len(cohort))
	copy(ranked, cohort)

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.PlayerControlled != b.PlayerControlled {
			return a.PlayerControlled
		}
		if a.Renown != b.Renown {
			return a.Renown > b.Renown
		}
		if a.BornTick != b.BornTick {
			return a.BornTick > b.BornTick
		}
		return a.ID < b.ID
	})
	return ranked
}
