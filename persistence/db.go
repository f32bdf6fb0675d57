// Package persistence provides a SQLite archive of run output. The
// population model itself is pure in-memory computation; this archive
// is written only by the driver, after or between passes, so long runs
// can be inspected offline.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/meerski/menagerie/registry"
	"github.com/meerski/menagerie/telemetry"
)

// DB wraps a SQLite connection for run archival.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id INTEGER PRIMARY KEY,
		species INTEGER NOT NULL,
		lineage INTEGER NOT NULL,
		location INTEGER NOT NULL,
		born_tick INTEGER NOT NULL,
		died_tick INTEGER,
		alive INTEGER NOT NULL,
		cause_of_death TEXT,
		age INTEGER NOT NULL,
		generation INTEGER NOT NULL,
		renown REAL NOT NULL,
		genome_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		type TEXT NOT NULL,
		entity_id INTEGER,
		lineage INTEGER,
		species INTEGER,
		location INTEGER,
		cause TEXT,
		from_tier TEXT,
		to_tier TEXT,
		drift REAL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_entities_lineage ON entities(lineage);
	CREATE INDEX IF NOT EXISTS idx_entities_alive ON entities(alive);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveEntities writes all entities to the archive (full replace).
func (db *DB) SaveEntities(entities []*registry.Entity) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entities"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO entities
		(id, species, lineage, location, born_tick, died_tick, alive,
		 cause_of_death, age, generation, renown, genome_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entities {
		genomeJSON, _ := json.Marshal(e.Genome)

		alive := 0
		if e.Alive {
			alive = 1
		}

		var diedTick any
		if !e.Alive {
			diedTick = e.DiedTick
		}

		_, err := stmt.Exec(
			e.ID, e.Species, e.Lineage, e.Location,
			e.BornTick, diedTick, alive,
			e.CauseOfDeath, e.Age, e.Generation, e.Renown,
			string(genomeJSON),
		)
		if err != nil {
			return fmt.Errorf("insert entity %d: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// SaveEvents appends events to the archive.
func (db *DB) SaveEvents(events []telemetry.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ev := range events {
		_, err := tx.Exec(
			`INSERT INTO events
			 (tick, type, entity_id, lineage, species, location, cause, from_tier, to_tier, drift)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.Tick, ev.Type.String(), ev.EntityID, ev.Lineage,
			ev.Species, ev.Location, ev.Cause, ev.FromTier, ev.ToTier, ev.Drift,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in run metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}

// SaveRun archives the full entity population and drained event stream.
func (db *DB) SaveRun(entities []*registry.Entity, events []telemetry.Event, lastTick int64) error {
	slog.Info("archiving run", "entities", len(entities), "events", len(events))

	if err := db.SaveEntities(entities); err != nil {
		return fmt.Errorf("save entities: %w", err)
	}
	if err := db.SaveEvents(events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", lastTick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("run archived")
	return nil
}
