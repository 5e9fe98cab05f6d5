package photontrace

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunDB persists run/time-index metadata to a single-file sqlite database
// (spec Section 4.13), grounded on banshee-data-velocity.report's
// internal/db package: sql.Open("sqlite", path) over modernc.org/sqlite,
// with golang-migrate/migrate/v4 applying schema migrations — here sourced
// from an embed.FS via the iofs driver instead of banshee's on-disk
// migrations directory, since this repo ships its migrations inside the
// binary.
type RunDB struct {
	db *sql.DB
}

// OpenRunDB opens (creating if necessary) the sqlite file at path and
// applies any pending migrations.
func OpenRunDB(path string) (*RunDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("photontrace: opening run db: %w", err)
	}

	if err := migrateRunDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return &RunDB{db: db}, nil
}

func migrateRunDB(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("photontrace: loading embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("photontrace: creating sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("photontrace: creating migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("photontrace: applying migrations: %w", err)
	}
	return nil
}

// StartRun inserts a new runs row and returns its generated UUID.
func (r *RunDB) StartRun(maxPhotons, numThreads, numLayers, numAbsorbers, timeStart, timeEnd int) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(
		`INSERT INTO runs (id, max_photons, num_threads, num_layers, num_absorbers, time_start, time_end)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, maxPhotons, numThreads, numLayers, numAbsorbers, timeStart, timeEnd,
	)
	if err != nil {
		return "", fmt.Errorf("photontrace: inserting run row: %w", err)
	}
	return id, nil
}

// RecordTimeIndex inserts one completed time index's summary.
func (r *RunDB) RecordTimeIndex(runID string, t, photonsDetected int, elapsedMs int64) error {
	_, err := r.db.Exec(
		`INSERT INTO time_indices (run_id, t, photons_detected, elapsed_ms) VALUES (?, ?, ?, ?)`,
		runID, t, photonsDetected, elapsedMs,
	)
	if err != nil {
		return fmt.Errorf("photontrace: recording time index %d: %w", t, err)
	}
	return nil
}

// FinishRun stamps finished_at on the given run.
func (r *RunDB) FinishRun(runID string) error {
	_, err := r.db.Exec(`UPDATE runs SET finished_at = ? WHERE id = ?`, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("photontrace: finishing run %s: %w", runID, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (r *RunDB) Close() error { return r.db.Close() }
