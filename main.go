package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/meerski/menagerie/config"
	"github.com/meerski/menagerie/genome"
	"github.com/meerski/menagerie/persistence"
	"github.com/meerski/menagerie/registry"
	"github.com/meerski/menagerie/sim"
	"github.com/meerski/menagerie/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and run metadata")
	archivePath := flag.String("archive", "", "SQLite archive path (overrides config)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 1000, "Number of scheduling passes to run")
	founders := flag.Int("founders", 40, "Founder entities per lineage")
	lineages := flag.Int("lineages", 4, "Number of founding lineages")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	output, err := telemetry.NewOutputManager(*outputDir, rngSeed)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()

	model := sim.New(cfg, sim.Options{Seed: rngSeed})
	seedFounders(model, *lineages, *founders, rngSeed)

	slog.Info("starting simulation",
		"seed", rngSeed,
		"max_ticks", *maxTicks,
		"lineages", *lineages,
		"founders", *founders,
		"run_id", output.Run().RunID,
	)

	statsWindow := cfg.Telemetry.StatsWindow
	for tick := 0; tick < *maxTicks; tick++ {
		stats := model.Step()

		if statsWindow > 0 && stats.Tick%int64(statsWindow) == 0 {
			stats.LogStats()
			if err := output.WriteStats(stats); err != nil {
				slog.Error("failed to write stats", "error", err)
			}
			if err := output.WriteDrift(model.DriftRows()); err != nil {
				slog.Error("failed to write drift", "error", err)
			}
		}
	}

	slog.Info("simulation finished", "tick", model.Tick(), "alive", model.Registry().AliveCount())

	archive := cfg.Archive.Path
	if *archivePath != "" {
		archive = *archivePath
	}
	if archive != "" {
		saveArchive(archive, model, output.Run().RunID)
	}
}

// seedFounders populates the model with founding lineages. Founder
// genomes come from a separate stream so reseeding does not disturb the
// simulation's own draws.
func seedFounders(model *sim.Model, lineageCount, founderCount int, seed int64) {
	rng := rand.New(rand.NewSource(seed + 1))
	traitNames := []string{"size", "speed", "vigor", "cunning"}

	for ln := 1; ln <= lineageCount; ln++ {
		for i := 0; i < founderCount; i++ {
			genes := make([]genome.Gene, 0, len(traitNames))
			for _, name := range traitNames {
				genes = append(genes, genome.Gene{
					Name:     name,
					Value:    genome.Clamp(50 + rng.NormFloat64()*10),
					Dominant: rng.Float64() < 0.5,
				})
			}

			_, err := model.AddFounder(sim.Founder{
				Species:  registry.SpeciesID(ln),
				Lineage:  registry.LineageID(ln),
				Location: registry.LocationID(1 + ln%2),
				Genome:   genome.New(genes, 0.05),
				Renown:   rng.Float64(),
			})
			if err != nil {
				slog.Warn("founder skipped", "lineage", ln, "error", err)
			}
		}
	}
}

// saveArchive writes the final population and event stream to SQLite.
func saveArchive(path string, model *sim.Model, runID string) {
	db, err := persistence.Open(path)
	if err != nil {
		slog.Error("failed to open archive", "path", path, "error", err)
		return
	}
	defer db.Close()

	if err := db.SaveRun(model.Registry().All(), model.Collector().DrainEvents(), model.Tick()); err != nil {
		slog.Error("failed to archive run", "error", err)
		return
	}
	if err := db.SaveMeta("run_id", runID); err != nil {
		slog.Error("failed to save run id", "error", err)
	}
}
