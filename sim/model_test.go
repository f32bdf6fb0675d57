package sim

import (
	"errors"
	"testing"

	"github.com/meerski/menagerie/config"
	"github.com/meerski/menagerie/genome"
	"github.com/meerski/menagerie/lineage"
	"github.com/meerski/menagerie/registry"
	"github.com/meerski/menagerie/speciation"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func testModel(t *testing.T) *Model {
	return New(testConfig(t), Options{Seed: 1})
}

func founderGenome(size float64) genome.Genome {
	return genome.New([]genome.Gene{
		{Name: "size", Value: size},
		{Name: "speed", Value: 50},
	}, 0.05)
}

func addFounder(t *testing.T, m *Model, sp registry.SpeciesID, ln registry.LineageID, loc registry.LocationID) *registry.Entity {
	t.Helper()
	e, err := m.AddFounder(Founder{
		Species:  sp,
		Lineage:  ln,
		Location: loc,
		Genome:   founderGenome(50),
	})
	if err != nil {
		t.Fatalf("AddFounder failed: %v", err)
	}
	return e
}

func TestAddFounder(t *testing.T) {
	m := testModel(t)

	e := addFounder(t, m, 1, 1, 1)

	if !e.Alive || e.BornTick != 0 {
		t.Errorf("founder lifecycle wrong: alive=%v born=%d", e.Alive, e.BornTick)
	}
	if m.Registry().AliveCount() != 1 {
		t.Errorf("expected 1 alive, got %d", m.Registry().AliveCount())
	}

	// The founder's lineage is tracked at tier Individual
	l, ok := m.Lineage(1)
	if !ok {
		t.Fatal("founder lineage not tracked")
	}
	if l.Tier != lineage.TierIndividual {
		t.Errorf("expected individual tier, got %v", l.Tier)
	}
}

func TestAddFounderRespectsGlobalCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.GlobalCap = 2
	m := New(cfg, Options{Seed: 1})

	addFounder(t, m, 1, 1, 1)
	addFounder(t, m, 1, 1, 1)

	_, err := m.AddFounder(Founder{Species: 1, Lineage: 1, Location: 1, Genome: founderGenome(50)})
	if !errors.Is(err, lineage.ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}
	if m.Registry().AliveCount() != 2 {
		t.Errorf("rejected founder mutated registry: alive=%d", m.Registry().AliveCount())
	}
}

func TestBreedPair(t *testing.T) {
	m := testModel(t)
	a := addFounder(t, m, 1, 1, 1)
	b := addFounder(t, m, 1, 1, 1)
	a.Generation = 2
	b.Generation = 5

	child, err := m.BreedPair(a.ID, b.ID)
	if err != nil {
		t.Fatalf("BreedPair failed: %v", err)
	}

	if child.Species != a.Species || child.Lineage != a.Lineage || child.Location != a.Location {
		t.Errorf("child identity should follow parent A: %+v", child)
	}
	if child.Generation != 6 {
		t.Errorf("expected generation 6, got %d", child.Generation)
	}
	if len(child.Genome.Genes) != 2 {
		t.Errorf("expected 2 genes, got %d", len(child.Genome.Genes))
	}

	// Both parents record the child
	if len(a.Children) != 1 || a.Children[0] != child.ID {
		t.Errorf("parent A children wrong: %v", a.Children)
	}
	if len(b.Children) != 1 || b.Children[0] != child.ID {
		t.Errorf("parent B children wrong: %v", b.Children)
	}
}

func TestBreedPairUnknownParent(t *testing.T) {
	m := testModel(t)
	a := addFounder(t, m, 1, 1, 1)

	if _, err := m.BreedPair(a.ID, 999); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBreedPairAtCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.GlobalCap = 2
	m := New(cfg, Options{Seed: 1})
	a := addFounder(t, m, 1, 1, 1)
	b := addFounder(t, m, 1, 1, 1)

	_, err := m.BreedPair(a.ID, b.ID)
	if !errors.Is(err, lineage.ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}
	if len(a.Children) != 0 {
		t.Error("failed breeding recorded a child")
	}
}

func TestMarkDeadRecordsEvent(t *testing.T) {
	m := testModel(t)
	e := addFounder(t, m, 1, 1, 1)

	m.MarkDead(e.ID, "starved")

	if e.Alive {
		t.Error("entity should be dead")
	}

	events := m.Collector().Events()
	// birth + death
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Cause != "starved" {
		t.Errorf("expected cause starved, got %q", events[1].Cause)
	}

	// Second call is a no-op, no duplicate event
	m.MarkDead(e.ID, "again")
	if len(m.Collector().Events()) != 2 {
		t.Error("duplicate death event recorded")
	}
}

func TestMigrateResetsIsolation(t *testing.T) {
	m := testModel(t)
	e := addFounder(t, m, 1, 1, 1)

	// Build up isolation at the destination pair
	m.Step()
	m.Step()
	key := speciation.Key{Species: 1, Location: 2}
	m.Tracker().IncrementIsolation(key)
	m.Tracker().IncrementIsolation(key)

	m.Migrate(e.ID, 2)
	if e.Location != 2 {
		t.Fatalf("expected location 2, got %d", e.Location)
	}

	m.Step()

	rec, ok := m.Tracker().Lookup(key)
	if !ok {
		t.Fatal("destination pair not tracked")
	}
	if rec.IsolationTicks != 0 {
		t.Errorf("migration should reset isolation, got %d", rec.IsolationTicks)
	}
}

func TestIsolationAccumulatesWithoutMigration(t *testing.T) {
	m := testModel(t)
	addFounder(t, m, 1, 1, 1)

	for i := 0; i < 5; i++ {
		m.Step()
	}

	rec, ok := m.Tracker().Lookup(speciation.Key{Species: 1, Location: 1})
	if !ok {
		t.Fatal("pair not tracked")
	}
	if rec.IsolationTicks != 5 {
		t.Errorf("expected isolation 5, got %d", rec.IsolationTicks)
	}
	if rec.SampleSize != 1 {
		t.Errorf("expected sample size 1, got %d", rec.SampleSize)
	}
}

func TestStepAgesEntities(t *testing.T) {
	m := testModel(t)
	e := addFounder(t, m, 1, 1, 1)

	m.Step()
	m.Step()

	if e.Age != 2 {
		t.Errorf("expected age 2, got %d", e.Age)
	}
	if m.Tick() != 2 {
		t.Errorf("expected tick 2, got %d", m.Tick())
	}
}

func TestStepBreedsMatureLineage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Breeding.BreedChance = 1.0
	cfg.Breeding.MaturityAge = 0
	m := New(cfg, Options{Seed: 1})

	addFounder(t, m, 1, 1, 1)
	addFounder(t, m, 1, 1, 1)

	stats := m.Step()

	if stats.Births != 1 {
		t.Errorf("expected 1 birth, got %d", stats.Births)
	}
	if m.Registry().AliveCount() != 3 {
		t.Errorf("expected 3 alive, got %d", m.Registry().AliveCount())
	}
}

func TestStepHonorsBirthBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.Breeding.BreedChance = 1.0
	cfg.Breeding.MaturityAge = 0
	cfg.Breeding.MaxBirthsPerLineage = 2
	m := New(cfg, Options{Seed: 1})

	for i := 0; i < 10; i++ {
		addFounder(t, m, 1, 1, 1)
	}

	stats := m.Step()
	if stats.Births != 2 {
		t.Errorf("expected births capped at 2, got %d", stats.Births)
	}
}

func TestStepImmatureLineageDoesNotBreed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Breeding.BreedChance = 1.0
	m := New(cfg, Options{Seed: 1})

	addFounder(t, m, 1, 1, 1)
	addFounder(t, m, 1, 1, 1)

	stats := m.Step()
	if stats.Births != 0 {
		t.Errorf("founders below maturity age bred: %d births", stats.Births)
	}
}

func TestStepCompressesLargeLineage(t *testing.T) {
	cfg := testConfig(t)
	m := New(cfg, Options{Seed: 1})

	for i := 0; i < cfg.Population.LineageThreshold; i++ {
		addFounder(t, m, 1, 1, 1)
	}

	stats := m.Step()

	l, _ := m.Lineage(1)
	if l.Tier != lineage.TierLineage {
		t.Fatalf("expected lineage tier, got %v", l.Tier)
	}
	if stats.TierChanges != 1 {
		t.Errorf("expected 1 tier change, got %d", stats.TierChanges)
	}
	wantArchived := cfg.Population.LineageThreshold - cfg.Population.LineageStandouts
	if stats.Archived != wantArchived {
		t.Errorf("expected %d archived, got %d", wantArchived, stats.Archived)
	}
	if m.Registry().AliveCount() != cfg.Population.LineageStandouts {
		t.Errorf("expected %d standouts alive, got %d",
			cfg.Population.LineageStandouts, m.Registry().AliveCount())
	}
}

func TestSpawnStandoutThroughModel(t *testing.T) {
	cfg := testConfig(t)
	m := New(cfg, Options{Seed: 1})

	for i := 0; i < cfg.Population.LineageThreshold; i++ {
		addFounder(t, m, 1, 1, 1)
	}
	m.Step() // compresses lineage 1

	e, ok, err := m.SpawnStandout(1, 1, 2)
	if err != nil || !ok {
		t.Fatalf("SpawnStandout failed: ok=%v err=%v", ok, err)
	}
	if e.Location != 2 || e.Lineage != 1 {
		t.Errorf("spawned identity wrong: %+v", e)
	}

	// Unknown lineage is unavailable, not an error
	if _, ok, err := m.SpawnStandout(99, 1, 1); ok || err != nil {
		t.Errorf("unknown lineage: ok=%v err=%v", ok, err)
	}
}

func TestStepDeterministic(t *testing.T) {
	run := func() []int {
		cfg := testConfig(t)
		cfg.Breeding.BreedChance = 0.5
		cfg.Breeding.MaturityAge = 0
		m := New(cfg, Options{Seed: 77})
		for i := 0; i < 20; i++ {
			addFounder(t, m, 1, 1, 1)
		}

		var counts []int
		for i := 0; i < 30; i++ {
			m.Step()
			counts = append(counts, m.Registry().AliveCount())
		}
		return counts
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tick %d: run A %d alive, run B %d alive", i+1, a[i], b[i])
		}
	}
}

func TestDriftRows(t *testing.T) {
	m := testModel(t)
	addFounder(t, m, 1, 1, 1)
	m.Step()

	rows := m.DriftRows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 drift row, got %d", len(rows))
	}
	if rows[0].Tick != 1 || rows[0].Species != 1 || rows[0].Location != 1 {
		t.Errorf("drift row wrong: %+v", rows[0])
	}
}
