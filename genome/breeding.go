package genome

import "math/rand"

// BreedParams holds inheritance tuning knobs.
type BreedParams struct {
	BlendWeight   float64 // weight of the selected parent's value in the blend
	MutationSigma float64 // stddev of mutation noise added to a selected value
	RateSigma     float64 // stddev of mutation-rate perturbation per offspring
}

// DefaultBreedParams returns the standard inheritance parameters.
func DefaultBreedParams() BreedParams {
	return BreedParams{
		BlendWeight:   0.7,
		MutationSigma: 8.0,
		RateSigma:     0.005,
	}
}

// Breeder produces offspring genomes from two parents.
// All randomness comes from the injected source so runs are reproducible.
type Breeder struct {
	params BreedParams
	rng    *rand.Rand
}

// NewBreeder creates a breeder with the given parameters and random source.
func NewBreeder(params BreedParams, rng *rand.Rand) *Breeder {
	return &Breeder{params: params, rng: rng}
}

// Breed produces one offspring genome from two parents.
//
// Genes are paired by name walking parent A's order. When B lacks the
// trait, A's gene is copied unchanged. Otherwise a source gene is picked
// by dominance (coin flip on a tie), a mutation draw against the averaged
// parent rates may add Gaussian noise to the selected value, and the
// final value blends the selected value with the other parent's
// pre-mutation value. Dominance of the new gene is re-rolled 50/50.
//
// Litters are produced by calling Breed once per offspring; every call
// draws independently.
func (b *Breeder) Breed(a, other Genome) Genome {
	avgRate := (a.MutationRate + other.MutationRate) / 2

	genes := make([]Gene, 0, len(a.Genes))
	for _, ga := range a.Genes {
		gb, ok := other.Find(ga.Name)
		if !ok {
			genes = append(genes, ga)
			continue
		}

		selected, rest := b.selectSource(ga, gb)

		value := selected.Value
		if b.rng.Float64() < avgRate {
			value += b.rng.NormFloat64() * b.params.MutationSigma
		}

		blended := b.params.BlendWeight*value + (1-b.params.BlendWeight)*rest.Value

		genes = append(genes, Gene{
			Name:     ga.Name,
			Value:    Clamp(blended),
			Dominant: b.rng.Float64() < 0.5,
		})
	}

	rate := avgRate + b.rng.NormFloat64()*b.params.RateSigma
	if rate < MinMutationRate {
		rate = MinMutationRate
	}

	return Genome{Genes: genes, MutationRate: rate}
}

// selectSource picks which parent's gene contributes the selected value.
// A single dominant gene always wins; matching dominance is a coin flip.
func (b *Breeder) selectSource(ga, gb Gene) (selected, other Gene) {
	switch {
	case ga.Dominant && !gb.Dominant:
		return ga, gb
	case gb.Dominant && !ga.Dominant:
		return gb, ga
	default:
		if b.rng.Float64() < 0.5 {
			return ga, gb
		}
		return gb, ga
	}
}
