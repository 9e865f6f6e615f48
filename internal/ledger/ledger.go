// Package ledger records calculations in a SQLite database so past runs and
// their window counts can be listed, compared and served over HTTP.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/monitoring"
	"github.com/banshee-data/xrfsim/internal/simulator"
	"github.com/banshee-data/xrfsim/internal/spectrum"
	"github.com/banshee-data/xrfsim/internal/xmimsim"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultPath is the ledger file used when none is configured.
const DefaultPath = "xrfsim.db"

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Ledger wraps the run database.
type Ledger struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the ledger at path and applies pending
// migrations.
func Open(path string) (*Ledger, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	l := &Ledger{DB: db, path: path}
	if err := l.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Path is the database file the ledger was opened from.
func (l *Ledger) Path() string { return l.path }

// MigrateUp runs all pending migrations. It is a no-op when the schema is
// current.
func (l *Ledger) MigrateUp() error {
	m, err := l.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: closing it would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion reports the applied schema version.
func (l *Ledger) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := l.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (l *Ledger) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(l.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// Run is one recorded calculation.
type Run struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Digest   string        `json:"digest"`
	DeckPath string        `json:"deck_path,omitempty"`
	Dir      string        `json:"dir"`
	Export   string        `json:"export,omitempty"`
	Flags    []string      `json:"flags,omitempty"`
	Threads  int           `json:"threads,omitempty"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Started  time.Time     `json:"started_at"`
	Duration time.Duration `json:"duration_ns"`
}

// FromResult describes a calculation outcome. res may be nil when the
// calculation failed before naming its artifacts.
func FromResult(res *xmimsim.Result, deckPath string, runErr error) Run {
	r := Run{DeckPath: deckPath, Status: StatusOK}
	if res != nil {
		r.Name = res.Name
		r.Digest = res.Digest
		r.Dir = res.Paths.Dir
		r.Export = string(res.Options.Simulator.Export)
		r.Flags = res.Options.Simulator.Flags()
		r.Threads = res.Options.Simulator.Threads
		r.Started = res.StartedAt
		r.Duration = res.Duration
		if res.Skipped {
			r.Status = StatusSkipped
		}
	}
	if runErr != nil {
		r.Status = StatusFailed
		r.Error = runErr.Error()
	}
	return r
}

// RecordRun inserts r, assigning an ID when r.ID is empty, and returns the
// stored copy.
func (l *Ledger) RecordRun(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Started.IsZero() {
		r.Started = time.Now()
	}
	r.Started = r.Started.UTC()

	_, err := l.ExecContext(ctx, `
		INSERT INTO runs (run_id, name, digest, deck_path, dir, export, flags, threads, status, error, started_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Digest, r.DeckPath, r.Dir, r.Export, strings.Join(r.Flags, " "),
		r.Threads, r.Status, r.Error, r.Started.UnixNano(), int64(r.Duration),
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to record run: %w", err)
	}
	return r, nil
}

// WindowCount is the stored summary of one energy window.
type WindowCount struct {
	Window   string   `json:"window"`
	Low      float64  `json:"low_kev"`
	High     float64  `json:"high_kev"`
	Photons  int64    `json:"photons"`
	Centroid *float64 `json:"centroid_kev,omitempty"`
	Width    *float64 `json:"width_kev,omitempty"`
}

// RecordWindows stores window statistics for a run, replacing earlier values
// for the same windows.
func (l *Ledger) RecordWindows(ctx context.Context, runID string, stats map[string]spectrum.WindowStats) error {
	tx, err := l.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO window_counts (run_id, window_name, low_kev, high_kev, photons, centroid_kev, width_kev)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, name := range spectrum.SortedNames(stats) {
		st := stats[name]
		if _, err := stmt.ExecContext(ctx, runID, name, st.Window.Low, st.Window.High, st.Photons,
			nullFloat(st.Centroid), nullFloat(st.Width)); err != nil {
			return fmt.Errorf("failed to record window %q: %w", name, err)
		}
	}
	return tx.Commit()
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

const runColumns = `run_id, name, digest, deck_path, dir, export, flags, threads, status, error, started_at, duration_ns`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r        Run
		flags    string
		started  int64
		duration int64
	)
	if err := s.Scan(&r.ID, &r.Name, &r.Digest, &r.DeckPath, &r.Dir, &r.Export, &flags,
		&r.Threads, &r.Status, &r.Error, &started, &duration); err != nil {
		return Run{}, err
	}
	if flags != "" {
		r.Flags = strings.Fields(flags)
	}
	r.Started = time.Unix(0, started).UTC()
	r.Duration = time.Duration(duration)
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := l.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun looks up one run.
func (l *Ledger) GetRun(ctx context.Context, id string) (Run, error) {
	row := l.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// Windows returns a run's window counts ordered by name.
func (l *Ledger) Windows(ctx context.Context, runID string) ([]WindowCount, error) {
	rows, err := l.QueryContext(ctx, `
		SELECT window_name, low_kev, high_kev, photons, centroid_kev, width_kev
		FROM window_counts WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WindowCount
	for rows.Next() {
		var (
			wc              WindowCount
			centroid, width sql.NullFloat64
		)
		if err := rows.Scan(&wc.Window, &wc.Low, &wc.High, &wc.Photons, &centroid, &width); err != nil {
			return nil, err
		}
		wc.Centroid, wc.Width = floatPtr(centroid), floatPtr(width)
		out = append(out, wc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Window < out[j].Window })
	return out, nil
}

// Paths locates the artifacts of a recorded run.
func (r Run) Paths() artifact.Paths {
	return artifact.Paths{Dir: r.Dir, Name: r.Name}
}

// Spectrum reads the run's spectrum back from its artifacts.
func (r Run) Spectrum(store artifact.Store) (spectrum.Spectrum, error) {
	s, _, err := spectrum.Load(store, r.Paths(), simulator.Export(r.Export).Unconvoluted())
	return s, err
}
