// Package lineage owns the compression tier of a lineage: the state
// machine that moves a lineage between fully individual simulation,
// compressed-with-standouts, and fully compressed representation.
package lineage

import (
	"github.com/meerski/menagerie/popgen"
	"github.com/meerski/menagerie/registry"
)

// Tier is a lineage's representation granularity.
type Tier uint8

const (
	// TierIndividual simulates every member individually.
	TierIndividual Tier = iota
	// TierLineage keeps a statistical genome plus a few standouts.
	TierLineage
	// TierPopulation is fully compressed.
	TierPopulation
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierIndividual:
		return "individual"
	case TierLineage:
		return "lineage"
	case TierPopulation:
		return "population"
	default:
		return "unknown"
	}
}

// Lineage holds the population-model-owned state of one lineage. The
// lineage itself (membership, ancestry) belongs to the family-tree
// collaborator; this core only owns the tier, the genome digest and the
// recorded population estimate.
type Lineage struct {
	ID registry.LineageID

	Tier   Tier
	Genome *popgen.PopulationGenome

	// PopulationEstimate records the member count seen at the last tier
	// evaluation. Population-tier lineages can exceed what is
	// individually tracked, so evaluations use the larger of this and
	// the live registry count.
	PopulationEstimate int

	// GenerationDepth is the lineage's recorded generation depth,
	// stamped onto spawned standouts.
	GenerationDepth int
}

// NewLineage creates a lineage at tier Individual with no genome digest.
func NewLineage(id registry.LineageID) *Lineage {
	return &Lineage{ID: id}
}
