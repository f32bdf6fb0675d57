// Package genome defines per-entity trait genomes and the breeding algorithm.
package genome

// MinMutationRate is the floor applied to every genome's mutation rate.
const MinMutationRate = 0.01

// Gene is a single named trait value with a dominance flag.
// Values are always kept in [0, 100].
type Gene struct {
	Name     string
	Value    float64
	Dominant bool
}

// Genome is an ordered collection of genes plus a mutation rate.
// Gene order is significant: breeding pairs genes by name but walks
// parent A's order, and offspring keep that order.
type Genome struct {
	Genes        []Gene
	MutationRate float64
}

// New creates a genome from the given genes with the mutation rate
// floored at MinMutationRate.
func New(genes []Gene, mutationRate float64) Genome {
	if mutationRate < MinMutationRate {
		mutationRate = MinMutationRate
	}
	return Genome{Genes: genes, MutationRate: mutationRate}
}

// Find returns the gene with the given name.
func (g Genome) Find(name string) (Gene, bool) {
	for _, gene := range g.Genes {
		if gene.Name == name {
			return gene, true
		}
	}
	return Gene{}, false
}

// Clone returns a deep copy of the genome.
func (g Genome) Clone() Genome {
	genes := make([]Gene, len(g.Genes))
	copy(genes, g.Genes)
	return Genome{Genes: genes, MutationRate: g.MutationRate}
}

// Clamp bounds a trait value to the valid [0, 100] range.
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
