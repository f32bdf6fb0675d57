package telemetry

// Collector accumulates population events and rolls them into per-pass
// statistics. The simulation records events as they happen and closes
// the window once per pass.
type Collector struct {
	events  []Event
	current PassStats
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record adds an event to the stream and the current pass counters.
func (c *Collector) Record(ev Event) {
	c.events = append(c.events, ev)

	switch ev.Type {
	case EventBirth:
		c.current.Births++
	case EventDeath:
		c.current.Deaths++
	case EventArchival:
		c.current.Archived++
	case EventStandout:
		c.current.Standouts++
	case EventTierChange:
		c.current.TierChanges++
	case EventSpeciation:
		c.current.Speciations++
	}
}

// EndPass closes the current window: the caller supplies the pass-end
// population counts, and the collector returns the finished stats and
// resets for the next pass.
func (c *Collector) EndPass(tick int64, counts PassStats) PassStats {
	stats := c.current
	stats.Tick = tick
	stats.Alive = counts.Alive
	stats.IndividualLineages = counts.IndividualLineages
	stats.LineageLineages = counts.LineageLineages
	stats.PopulationLineages = counts.PopulationLineages
	stats.TrackedPairs = counts.TrackedPairs
	stats.MaxDrift = counts.MaxDrift
	stats.MaxIsolation = counts.MaxIsolation

	c.current = PassStats{}
	return stats
}

// Events returns the accumulated event stream.
func (c *Collector) Events() []Event {
	return c.events
}

// DrainEvents returns the accumulated events and clears the stream.
func (c *Collector) DrainEvents() []Event {
	events := c.events
	c.events = nil
	return events
}
