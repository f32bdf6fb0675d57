// Package registry provides the indexed store of live and historical entities.
package registry

import "github.com/meerski/menagerie/genome"

// EntityID uniquely identifies an entity across the whole simulation.
type EntityID uint64

// SpeciesID identifies a species.
type SpeciesID uint32

// LocationID identifies a region of the world.
type LocationID uint32

// LineageID identifies a lineage (owned by the family-tree collaborator).
type LineageID uint64

// CauseArchived marks entities removed by tier compression rather than
// an in-fiction death. Downstream consumers only observe alive/dead
// state, so archival reuses the normal death transition; the cause string
// keeps the two distinguishable.
const CauseArchived = "archived"

// Entity is one simulated organism.
type Entity struct {
	ID       EntityID
	Species  SpeciesID
	Lineage  LineageID
	Location LocationID

	Genome genome.Genome

	BornTick     int64
	DiedTick     int64 // meaningful only when !Alive
	Alive        bool
	CauseOfDeath string
	Age          int

	Generation       int
	PlayerControlled bool
	Renown           float64

	// Children holds direct offspring ids for descendant queries.
	Children []EntityID
}

// Snapshot is a read-only view of an entity for narrative/UI consumers.
type Snapshot struct {
	ID           EntityID      `json:"id"`
	Species      SpeciesID     `json:"species"`
	Lineage      LineageID     `json:"lineage"`
	Location     LocationID    `json:"location"`
	BornTick     int64         `json:"born_tick"`
	DiedTick     int64         `json:"died_tick,omitempty"`
	Alive        bool          `json:"alive"`
	CauseOfDeath string        `json:"cause_of_death,omitempty"`
	Age          int           `json:"age"`
	Generation   int           `json:"generation"`
	Renown       float64       `json:"renown"`
	Genome       genome.Genome `json:"genome"`
}

// Snapshot returns a copy of the entity's externally visible state.
func (e *Entity) Snapshot() Snapshot {
	return Snapshot{
		ID:           e.ID,
		Species:      e.Species,
		Lineage:      e.Lineage,
		Location:     e.Location,
		BornTick:     e.BornTick,
		DiedTick:     e.DiedTick,
		Alive:        e.Alive,
		CauseOfDeath: e.CauseOfDeath,
		Age:          e.Age,
		Generation:   e.Generation,
		Renown:       e.Renown,
		Genome:       e.Genome.Clone(),
	}
}
