// Package telemetry provides pass statistics, the population event
// stream, and CSV output for offline analysis.
package telemetry

import "github.com/meerski/menagerie/registry"

// EventType identifies population events.
type EventType uint8

const (
	EventBirth EventType = iota
	EventDeath
	EventArchival
	EventTierChange
	EventSpeciation
	EventStandout
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventBirth:
		return "birth"
	case EventDeath:
		return "death"
	case EventArchival:
		return "archival"
	case EventTierChange:
		return "tier_change"
	case EventSpeciation:
		return "speciation"
	case EventStandout:
		return "standout"
	default:
		return "unknown"
	}
}

// Event represents a single population event.
type Event struct {
	Type     EventType
	Tick     int64
	EntityID registry.EntityID
	Lineage  registry.LineageID
	Species  registry.SpeciesID
	Location registry.LocationID

	// Optional fields depending on event type
	Cause    string  // death/archival cause
	FromTier string  // tier change
	ToTier   string  // tier change
	Drift    float64 // speciation
}

// NewBirthEvent creates a birth event.
func NewBirthEvent(tick int64, e *registry.Entity) Event {
	return Event{
		Type:     EventBirth,
		Tick:     tick,
		EntityID: e.ID,
		Lineage:  e.Lineage,
		Species:  e.Species,
		Location: e.Location,
	}
}

// NewDeathEvent creates a death or archival event depending on the cause.
func NewDeathEvent(tick int64, e *registry.Entity, cause string) Event {
	typ := EventDeath
	if cause == registry.CauseArchived {
		typ = EventArchival
	}
	return Event{
		Type:     typ,
		Tick:     tick,
		EntityID: e.ID,
		Lineage:  e.Lineage,
		Species:  e.Species,
		Location: e.Location,
		Cause:    cause,
	}
}

// NewTierChangeEvent creates a tier change event for a lineage.
func NewTierChangeEvent(tick int64, lineage registry.LineageID, from, to string) Event {
	return Event{
		Type:     EventTierChange,
		Tick:     tick,
		Lineage:  lineage,
		FromTier: from,
		ToTier:   to,
	}
}

// NewSpeciationEvent creates a speciation event for a (species, location) pair.
func NewSpeciationEvent(tick int64, sp registry.SpeciesID, loc registry.LocationID, drift float64) Event {
	return Event{
		Type:     EventSpeciation,
		Tick:     tick,
		Species:  sp,
		Location: loc,
		Drift:    drift,
	}
}

// NewStandoutEvent creates an event for a standout materialized from a
// compressed lineage.
func NewStandoutEvent(tick int64, e *registry.Entity) Event {
	return Event{
		Type:     EventStandout,
		Tick:     tick,
		EntityID: e.ID,
		Lineage:  e.Lineage,
		Species:  e.Species,
		Location: e.Location,
	}
}
