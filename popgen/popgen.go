// Package popgen provides the statistical population genome: a lossy
// digest of a cohort that supports incremental merge and sampling
// synthetic genomes back out.
package popgen

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/meerski/menagerie/genome"
)

// DefaultMutationRate is used by genomes built from empty cohorts.
const DefaultMutationRate = 0.05

// TraitStats holds the running statistics for one observed trait.
// Variance is the population (biased) variance. Count is the number of
// genomes that carried this trait; on cohorts with uniform trait sets it
// equals the genome's sample size.
type TraitStats struct {
	Mean        float64
	Variance    float64
	DomFraction float64
	Count       int
}

// PopulationGenome is a statistical digest of a cohort, not tied to any
// single entity.
type PopulationGenome struct {
	Traits       map[string]*TraitStats
	MutationRate float64
	SampleSize   int
}

// New creates an empty population genome.
func New() *PopulationGenome {
	return &PopulationGenome{
		Traits:       make(map[string]*TraitStats),
		MutationRate: DefaultMutationRate,
	}
}

// Build computes a population genome from a cohort in one batch pass.
// An empty cohort yields an empty genome, never an error.
func Build(cohort []genome.Genome) *PopulationGenome {
	pg := New()
	if len(cohort) == 0 {
		return pg
	}

	values := make(map[string][]float64)
	dominants := make(map[string]int)
	rates := make([]float64, 0, len(cohort))

	for _, g := range cohort {
		for _, gene := range g.Genes {
			values[gene.Name] = append(values[gene.Name], gene.Value)
			if gene.Dominant {
				dominants[gene.Name]++
			}
		}
		rates = append(rates, g.MutationRate)
	}

	for name, vs := range values {
		mean, variance := stat.MeanVariance(vs, nil)
		n := float64(len(vs))
		if len(vs) < 2 {
			variance = 0
		} else {
			// stat.MeanVariance is unbiased; the digest stores the
			// population form.
			variance *= (n - 1) / n
		}
		pg.Traits[name] = &TraitStats{
			Mean:        mean,
			Variance:    variance,
			DomFraction: float64(dominants[name]) / n,
			Count:       len(vs),
		}
	}

	pg.MutationRate = stat.Mean(rates, nil)
	pg.SampleSize = len(cohort)
	return pg
}

// Merge folds one more genome into the digest without recomputing from
// the full cohort. This is the online form of Build: merging a cohort
// one genome at a time matches Build over the same cohort within
// floating-point tolerance.
func (pg *PopulationGenome) Merge(g genome.Genome) {
	for _, gene := range g.Genes {
		ts, ok := pg.Traits[gene.Name]
		if !ok {
			ts = &TraitStats{}
			pg.Traits[gene.Name] = ts
		}

		n := float64(ts.Count)
		nn := n + 1

		newMean := (ts.Mean*n + gene.Value) / nn
		newVariance := (ts.Variance*n + (gene.Value-ts.Mean)*(gene.Value-newMean)) / nn
		if newVariance < 0 {
			newVariance = 0
		}

		dom := 0.0
		if gene.Dominant {
			dom = 1
		}

		ts.Mean = newMean
		ts.Variance = newVariance
		ts.DomFraction = (ts.DomFraction*n + dom) / nn
		ts.Count++
	}

	n := float64(pg.SampleSize)
	pg.MutationRate = (pg.MutationRate*n + g.MutationRate) / (n + 1)
	pg.SampleSize++
}

// Sample synthesizes one genome from the digest. Each tracked trait is
// drawn from a Gaussian with the trait's mean and a standard deviation
// of sqrt(max(1, variance)), clamped to the valid range; dominance is a
// weighted coin flip on the trait's dominance fraction. Traits are drawn
// in sorted name order so a seeded source yields reproducible genomes.
func (pg *PopulationGenome) Sample(rng *rand.Rand) genome.Genome {
	names := pg.TraitNames()
	genes := make([]genome.Gene, 0, len(names))

	for _, name := range names {
		ts := pg.Traits[name]
		sd := math.Sqrt(math.Max(1, ts.Variance))
		genes = append(genes, genome.Gene{
			Name:     name,
			Value:    genome.Clamp(ts.Mean + rng.NormFloat64()*sd),
			Dominant: rng.Float64() < ts.DomFraction,
		})
	}

	return genome.Genome{Genes: genes, MutationRate: pg.MutationRate}
}

// Empty reports whether the digest tracks no traits.
func (pg *PopulationGenome) Empty() bool {
	return pg == nil || len(pg.Traits) == 0
}

// TraitNames returns the tracked trait names in sorted order.
func (pg *PopulationGenome) TraitNames() []string {
	names := make([]string, 0, len(pg.Traits))
	for name := range pg.Traits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the digest.
func (pg *PopulationGenome) Clone() *PopulationGenome {
	out := New()
	out.MutationRate = pg.MutationRate
	out.SampleSize = pg.SampleSize
	for name, ts := range pg.Traits {
		c := *ts
		out.Traits[name] = &c
	}
	return out
}
