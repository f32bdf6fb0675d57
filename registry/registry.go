package registry

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for registry lookups.
var (
	ErrDuplicateIdentity = errors.New("duplicate entity identity")
	ErrNotFound          = errors.New("entity not found")
)

// Registry is the indexed entity store. Every live or historical entity
// is reachable by identity and by its location, species and lineage keys.
// Dead entities stay in the grouping indexes for historical queries and
// only leave the alive set.
//
// The registry has no internal locking: a single scheduling pass owns it
// exclusively during evaluation.
type Registry struct {
	entities map[EntityID]*Entity

	byLocation map[LocationID]map[EntityID]struct{}
	bySpecies  map[SpeciesID]map[EntityID]struct{}
	byLineage  map[LineageID]map[EntityID]struct{}
	alive      map[EntityID]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entities:   make(map[EntityID]*Entity),
		byLocation: make(map[LocationID]map[EntityID]struct{}),
		bySpecies:  make(map[SpeciesID]map[EntityID]struct{}),
		byLineage:  make(map[LineageID]map[EntityID]struct{}),
		alive:      make(map[EntityID]struct{}),
	}
}

// Add inserts an entity and indexes it by location, species and lineage.
// Returns ErrDuplicateIdentity if the id is already present.
func (r *Registry) Add(e *Entity) error {
	if _, ok := r.entities[e.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateIdentity, e.ID)
	}
	r.entities[e.ID] = e
	r.index(e)
	if e.Alive {
		r.alive[e.ID] = struct{}{}
	}
	return nil
}

// Get returns the entity with the given id, or ErrNotFound.
func (r *Registry) Get(id EntityID) (*Entity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, nil
}

// Remove hard-deletes an entity and all its index entries. This is not a
// lifecycle death; use MarkDead for that. No-op if the id is absent.
func (r *Registry) Remove(id EntityID) {
	e, ok := r.entities[id]
	if !ok {
		return
	}
	r.deindex(e)
	delete(r.alive, id)
	delete(r.entities, id)
}

// MarkDead flips the alive flag and records the death tick and cause.
// The entity stays in the grouping indexes for historical queries and is
// only dropped from the alive set. No-op if the id is absent or the
// entity is already dead: the caller cannot always know whether an
// entity already aged out.
func (r *Registry) MarkDead(id EntityID, tick int64, cause string) {
	e, ok := r.entities[id]
	if !ok || !e.Alive {
		return
	}
	e.Alive = false
	e.DiedTick = tick
	e.CauseOfDeath = cause
	delete(r.alive, id)
}

// MoveLocation re-keys an entity from its old location bucket to the new
// one and updates its location field. No-op if the id is absent.
func (r *Registry) MoveLocation(id EntityID, newLocation LocationID) {
	e, ok := r.entities[id]
	if !ok || e.Location == newLocation {
		return
	}
	removeFromBucket(r.byLocation, e.Location, id)
	e.Location = newLocation
	addToBucket(r.byLocation, newLocation, id)
}

// AliveCount returns the number of live entities in O(1).
func (r *Registry) AliveCount() int {
	return len(r.alive)
}

// All returns every entity, alive and dead, ordered by id.
func (r *Registry) All() []*Entity {
	out := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sortByID(out)
	return out
}

// AllAlive returns every live entity, ordered by id.
func (r *Registry) AllAlive() []*Entity {
	out := make([]*Entity, 0, len(r.alive))
	for id := range r.alive {
		out = append(out, r.entities[id])
	}
	sortByID(out)
	return out
}

// AliveBySpecies returns the live members of a species, ordered by id.
func (r *Registry) AliveBySpecies(sp SpeciesID) []*Entity {
	return r.collectAlive(r.bySpecies[sp])
}

// AliveByLocation returns the live entities at a location, ordered by id.
func (r *Registry) AliveByLocation(loc LocationID) []*Entity {
	return r.collectAlive(r.byLocation[loc])
}

// AliveBySpeciesAt returns the live members of a species at a location.
func (r *Registry) AliveBySpeciesAt(sp SpeciesID, loc LocationID) []*Entity {
	var out []*Entity
	for id := range r.bySpecies[sp] {
		e := r.entities[id]
		if e.Alive && e.Location == loc {
			out = append(out, e)
		}
	}
	sortByID(out)
	return out
}

// ByLineage returns every member of a lineage, alive and dead, ordered by id.
func (r *Registry) ByLineage(ln LineageID) []*Entity {
	out := make([]*Entity, 0, len(r.byLineage[ln]))
	for id := range r.byLineage[ln] {
		out = append(out, r.entities[id])
	}
	sortByID(out)
	return out
}

// AliveByLineage returns the live members of a lineage, ordered by id.
func (r *Registry) AliveByLineage(ln LineageID) []*Entity {
	return r.collectAlive(r.byLineage[ln])
}

// LivingDescendants returns the live transitive descendants of the given
// entity, following child pointers. Cycle-safe via a visited set. The
// root itself is not included.
func (r *Registry) LivingDescendants(id EntityID) []*Entity {
	root, ok := r.entities[id]
	if !ok {
		return nil
	}

	visited := map[EntityID]struct{}{id: {}}
	queue := append([]EntityID(nil), root.Children...)
	var out []*Entity

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, seen := visited[next]; seen {
			continue
		}
		visited[next] = struct{}{}

		child, ok := r.entities[next]
		if !ok {
			continue
		}
		if child.Alive {
			out = append(out, child)
		}
		queue = append(queue, child.Children...)
	}

	sortByID(out)
	return out
}

// index adds an entity to all three grouping indexes. Together with
// deindex this is the only path that touches the index tables.
func (r *Registry) index(e *Entity) {
	addToBucket(r.byLocation, e.Location, e.ID)
	addToBucket(r.bySpecies, e.Species, e.ID)
	addToBucket(r.byLineage, e.Lineage, e.ID)
}

// deindex removes an entity from all three grouping indexes.
func (r *Registry) deindex(e *Entity) {
	removeFromBucket(r.byLocation, e.Location, e.ID)
	removeFromBucket(r.bySpecies, e.Species, e.ID)
	removeFromBucket(r.byLineage, e.Lineage, e.ID)
}

func (r *Registry) collectAlive(bucket map[EntityID]struct{}) []*Entity {
	var out []*Entity
	for id := range bucket {
		if e := r.entities[id]; e.Alive {
			out = append(out, e)
		}
	}
	sortByID(out)
	return out
}

func addToBucket[K comparable](index map[K]map[EntityID]struct{}, key K, id EntityID) {
	bucket, ok := index[key]
	if !ok {
		bucket = make(map[EntityID]struct{})
		index[key] = bucket
	}
	bucket[id] = struct{}{}
}

func removeFromBucket[K comparable](index map[K]map[EntityID]struct{}, key K, id EntityID) {
	bucket, ok := index[key]
	if !ok {
		return
	}
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(index, key)
	}
}

func sortByID(entities []*Entity) {
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].ID < entities[j].ID
	})
}
