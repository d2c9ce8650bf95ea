// Package weatherdb keeps fetched forecasts in SQLite and serves them to the
// face as a push-based weather provider.
//
// The tables follow the Sunshine forecast layout: one row per location and
// one row per location and day. Rows handed to subscribers use the detail
// projection, so the max/min temperatures and the condition id sit at the
// fixed columns weathersub reads.
package weatherdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sakaisatoru/go_sunshine_face/weathersub"
)

const schema = `
CREATE TABLE IF NOT EXISTS location (
	_id              INTEGER PRIMARY KEY AUTOINCREMENT,
	location_setting TEXT NOT NULL UNIQUE,
	city_name        TEXT NOT NULL DEFAULT '',
	coord_lat        REAL NOT NULL DEFAULT 0,
	coord_long       REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS weather (
	_id         INTEGER PRIMARY KEY AUTOINCREMENT,
	location_id INTEGER NOT NULL REFERENCES location(_id),
	date        INTEGER NOT NULL,
	short_desc  TEXT    NOT NULL DEFAULT '',
	weather_id  INTEGER NOT NULL,
	min         REAL    NOT NULL,
	max         REAL    NOT NULL,
	humidity    REAL    NOT NULL DEFAULT 0,
	pressure    REAL    NOT NULL DEFAULT 0,
	wind        REAL    NOT NULL DEFAULT 0,
	degrees     REAL    NOT NULL DEFAULT 0,
	UNIQUE (date, location_id) ON CONFLICT REPLACE
);
CREATE INDEX IF NOT EXISTS weather_location_date ON weather(location_id, date);
`

// detailProjection lists the columns in weathersub order:
// 3 = max, 4 = min, 9 = condition id.
const detailProjection = `w._id, w.date, w.short_desc, w.max, w.min,
	w.humidity, w.pressure, w.wind, w.degrees, w.weather_id`

// Location is one place forecasts are kept for. Setting is the key the face
// queries with (the user's preferred location string).
type Location struct {
	Setting string
	City    string
	Lat     float64
	Lon     float64
}

// Day is one day of forecast. Temperatures are Celsius.
type Day struct {
	Date        time.Time
	ShortDesc   string
	ConditionID int
	Min         float64
	Max         float64
	Humidity    float64
	Pressure    float64
	Wind        float64
	Degrees     float64
}

type config struct {
	busyTimeout int
	mkdirAll    bool
	logger      *slog.Logger
	now         func() time.Time
}

// Option customises Open.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 5000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// WithClock sets the clock live queries read "now" from. Default: time.Now.
func WithClock(now func() time.Time) Option { return func(c *config) { c.now = now } }

// Store is the forecast database. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time

	mu       sync.Mutex
	next     int
	watchers map[int]*watcher
}

// Open opens (creating if needed) the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{busyTimeout: 5000}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("weatherdb: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("weatherdb: open: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("weatherdb: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("weatherdb: schema: %w", err)
	}
	return &Store{db: db, log: cfg.logger, now: cfg.now, watchers: make(map[int]*watcher)}, nil
}

// DB exposes the underlying handle so other small tables (preferences) can
// live in the same file.
func (s *Store) DB() *sql.DB { return s.db }

// Close cancels every subscription and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	ws := make([]*watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		ws = append(ws, w)
	}
	s.mu.Unlock()
	for _, w := range ws {
		w.Cancel()
	}
	for _, w := range ws {
		w.wait()
	}
	return s.db.Close()
}

// Save upserts loc and its forecast days, then wakes subscribers of loc.
func (s *Store) Save(ctx context.Context, loc Location, days []Day) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("weatherdb: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO location (location_setting, city_name, coord_lat, coord_long)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(location_setting) DO UPDATE SET
			city_name = excluded.city_name,
			coord_lat = excluded.coord_lat,
			coord_long = excluded.coord_long`,
		loc.Setting, loc.City, loc.Lat, loc.Lon); err != nil {
		return fmt.Errorf("weatherdb: upsert location: %w", err)
	}
	var locID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT _id FROM location WHERE location_setting = ?`, loc.Setting).Scan(&locID); err != nil {
		return fmt.Errorf("weatherdb: location id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO weather (location_id, date, short_desc, weather_id, min, max,
			humidity, pressure, wind, degrees)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("weatherdb: prepare: %w", err)
	}
	defer stmt.Close()
	for _, d := range days {
		if _, err := stmt.ExecContext(ctx, locID, DayStart(d.Date).UnixMilli(), d.ShortDesc,
			d.ConditionID, d.Min, d.Max, d.Humidity, d.Pressure, d.Wind, d.Degrees); err != nil {
			return fmt.Errorf("weatherdb: insert day %s: %w", d.Date.Format(time.DateOnly), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("weatherdb: commit: %w", err)
	}
	s.log.Debug("weatherdb: saved forecast", "location", loc.Setting, "days", len(days))
	s.notify(loc.Setting)
	return nil
}

// Prune removes forecast days before t.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM weather WHERE date < ?`, DayStart(before).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("weatherdb: prune: %w", err)
	}
	return res.RowsAffected()
}

// Latest returns the forecast rows for q.Location dated at or before
// q.AsOf, most recent first, in the detail projection.
func (s *Store) Latest(ctx context.Context, q weathersub.Query) ([]weathersub.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+detailProjection+`
		FROM weather w JOIN location l ON l._id = w.location_id
		WHERE l.location_setting = ? AND w.date <= ?
		ORDER BY w.date DESC`,
		q.Location, q.AsOf.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("weatherdb: query: %w", err)
	}
	defer rows.Close()

	var out []weathersub.Row
	for rows.Next() {
		vals := make(weathersub.Row, weathersub.ColumnCount)
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("weatherdb: scan: %w", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("weatherdb: rows: %w", err)
	}
	return out, nil
}

// DayStart truncates t to midnight UTC, the key forecast days are stored
// under.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
