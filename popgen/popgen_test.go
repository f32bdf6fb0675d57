package popgen

import (
	"math"
	"math/rand"
	"testing"

	"github.com/meerski/menagerie/genome"
)

func makeGenome(rate float64, traits map[string]float64, dominant map[string]bool) genome.Genome {
	genes := make([]genome.Gene, 0, len(traits))
	for _, name := range []string{"size", "speed", "vigor"} {
		v, ok := traits[name]
		if !ok {
			continue
		}
		genes = append(genes, genome.Gene{Name: name, Value: v, Dominant: dominant[name]})
	}
	return genome.New(genes, rate)
}

func TestBuildEmptyCohort(t *testing.T) {
	pg := Build(nil)

	if !pg.Empty() {
		t.Error("empty cohort should yield an empty genome")
	}
	if pg.SampleSize != 0 {
		t.Errorf("expected sample size 0, got %d", pg.SampleSize)
	}
	if pg.MutationRate != DefaultMutationRate {
		t.Errorf("expected default rate %v, got %v", DefaultMutationRate, pg.MutationRate)
	}
}

func TestBuildStats(t *testing.T) {
	cohort := []genome.Genome{
		makeGenome(0.02, map[string]float64{"size": 10}, map[string]bool{"size": true}),
		makeGenome(0.04, map[string]float64{"size": 20}, nil),
		makeGenome(0.06, map[string]float64{"size": 30}, map[string]bool{"size": true}),
		makeGenome(0.08, map[string]float64{"size": 40}, nil),
	}

	pg := Build(cohort)

	ts := pg.Traits["size"]
	if ts == nil {
		t.Fatal("size trait missing from digest")
	}

	if math.Abs(ts.Mean-25) > 1e-9 {
		t.Errorf("expected mean 25, got %v", ts.Mean)
	}
	// Population variance of {10,20,30,40} is 125
	if math.Abs(ts.Variance-125) > 1e-9 {
		t.Errorf("expected variance 125, got %v", ts.Variance)
	}
	if math.Abs(ts.DomFraction-0.5) > 1e-9 {
		t.Errorf("expected dominance fraction 0.5, got %v", ts.DomFraction)
	}
	if ts.Count != 4 {
		t.Errorf("expected count 4, got %d", ts.Count)
	}
	if math.Abs(pg.MutationRate-0.05) > 1e-9 {
		t.Errorf("expected mean rate 0.05, got %v", pg.MutationRate)
	}
	if pg.SampleSize != 4 {
		t.Errorf("expected sample size 4, got %d", pg.SampleSize)
	}
}

func TestBuildSingleMemberVarianceZero(t *testing.T) {
	pg := Build([]genome.Genome{
		makeGenome(0.05, map[string]float64{"size": 42}, nil),
	})

	ts := pg.Traits["size"]
	if ts.Variance != 0 {
		t.Errorf("single-member variance should be 0, got %v", ts.Variance)
	}
	if ts.Mean != 42 {
		t.Errorf("expected mean 42, got %v", ts.Mean)
	}
}

func TestMergeMatchesBuild(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	cohort := make([]genome.Genome, 0, 60)
	for i := 0; i < 60; i++ {
		cohort = append(cohort, makeGenome(
			0.01+rng.Float64()*0.1,
			map[string]float64{
				"size":  rng.Float64() * 100,
				"speed": rng.Float64() * 100,
			},
			map[string]bool{
				"size":  rng.Intn(2) == 0,
				"speed": rng.Intn(2) == 0,
			},
		))
	}

	batch := Build(cohort)

	online := New()
	for _, g := range cohort {
		online.Merge(g)
	}

	if online.SampleSize != batch.SampleSize {
		t.Errorf("sample size mismatch: online %d, batch %d", online.SampleSize, batch.SampleSize)
	}
	if relDiff(online.MutationRate, batch.MutationRate) > 1e-9 {
		t.Errorf("rate mismatch: online %v, batch %v", online.MutationRate, batch.MutationRate)
	}

	for _, name := range batch.TraitNames() {
		b, o := batch.Traits[name], online.Traits[name]
		if o == nil {
			t.Fatalf("trait %s missing from online digest", name)
		}
		if relDiff(o.Mean, b.Mean) > 1e-9 {
			t.Errorf("%s mean: online %v, batch %v", name, o.Mean, b.Mean)
		}
		if relDiff(o.Variance, b.Variance) > 1e-9 {
			t.Errorf("%s variance: online %v, batch %v", name, o.Variance, b.Variance)
		}
		if relDiff(o.DomFraction, b.DomFraction) > 1e-9 {
			t.Errorf("%s dominance: online %v, batch %v", name, o.DomFraction, b.DomFraction)
		}
		if o.Count != b.Count {
			t.Errorf("%s count: online %d, batch %d", name, o.Count, b.Count)
		}
	}
}

func TestMergeRaggedCohort(t *testing.T) {
	// Genomes with different trait sets keep per-trait counts
	online := New()
	online.Merge(makeGenome(0.05, map[string]float64{"size": 10, "speed": 80}, nil))
	online.Merge(makeGenome(0.05, map[string]float64{"size": 30}, nil))

	if online.SampleSize != 2 {
		t.Errorf("expected sample size 2, got %d", online.SampleSize)
	}
	if online.Traits["size"].Count != 2 {
		t.Errorf("expected size count 2, got %d", online.Traits["size"].Count)
	}
	if online.Traits["speed"].Count != 1 {
		t.Errorf("expected speed count 1, got %d", online.Traits["speed"].Count)
	}
	if online.Traits["speed"].Mean != 80 {
		t.Errorf("single-carrier mean should be 80, got %v", online.Traits["speed"].Mean)
	}
}

func TestSampleInRange(t *testing.T) {
	pg := Build([]genome.Genome{
		makeGenome(0.05, map[string]float64{"size": 95, "speed": 3}, nil),
		makeGenome(0.05, map[string]float64{"size": 99, "speed": 7}, nil),
	})

	rng := rand.New(rand.NewSource(13))
	for i := 0; i < 500; i++ {
		g := pg.Sample(rng)
		for _, gene := range g.Genes {
			if gene.Value < 0 || gene.Value > 100 {
				t.Fatalf("sampled %s out of range: %v", gene.Name, gene.Value)
			}
		}
		if g.MutationRate != pg.MutationRate {
			t.Fatalf("sampled rate %v, digest rate %v", g.MutationRate, pg.MutationRate)
		}
	}
}

func TestSampleSortedTraitOrder(t *testing.T) {
	pg := Build([]genome.Genome{
		makeGenome(0.05, map[string]float64{"vigor": 50, "size": 50, "speed": 50}, nil),
	})

	g := pg.Sample(rand.New(rand.NewSource(1)))
	want := []string{"size", "speed", "vigor"}
	for i, name := range want {
		if g.Genes[i].Name != name {
			t.Errorf("gene %d: expected %s, got %s", i, name, g.Genes[i].Name)
		}
	}
}

func TestSampleReproducible(t *testing.T) {
	pg := Build([]genome.Genome{
		makeGenome(0.05, map[string]float64{"size": 40, "speed": 60}, map[string]bool{"size": true}),
		makeGenome(0.05, map[string]float64{"size": 50, "speed": 50}, nil),
	})

	g1 := pg.Sample(rand.New(rand.NewSource(99)))
	g2 := pg.Sample(rand.New(rand.NewSource(99)))

	for i := range g1.Genes {
		if g1.Genes[i] != g2.Genes[i] {
			t.Errorf("same seed produced different gene %d: %+v vs %+v", i, g1.Genes[i], g2.Genes[i])
		}
	}
}

func TestEmptyNilSafe(t *testing.T) {
	var pg *PopulationGenome
	if !pg.Empty() {
		t.Error("nil digest should report empty")
	}
}

func TestCloneIndependent(t *testing.T) {
	pg := Build([]genome.Genome{
		makeGenome(0.05, map[string]float64{"size": 40}, nil),
	})

	c := pg.Clone()
	c.Traits["size"].Mean = 99
	c.SampleSize = 42

	if pg.Traits["size"].Mean != 40 {
		t.Error("Clone shares trait storage with the original")
	}
	if pg.SampleSize != 1 {
		t.Errorf("Clone mutated original sample size: %d", pg.SampleSize)
	}
}

func relDiff(a, b float64) float64 {
	d := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale < 1 {
		return d
	}
	return d / scale
}
