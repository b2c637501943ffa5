package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // Registers the sqlite3 driver.

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
)

// ErrNotFound is returned when a building has no stored schedule.
var ErrNotFound = domain.ErrNoSchedule

// StoredWindow is a window as persisted, before interpretation.
// End is empty when no end time was ever set.
type StoredWindow struct {
	BuildingID int64
	Start      string
	End        string
}

// Store implements schedule and exception persistence on SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS building_times (
	building_id INTEGER PRIMARY KEY,
	start_time  TEXT NOT NULL,
	end_time    TEXT,
	created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ignored_proevents (
	proevent_id      INTEGER PRIMARY KEY,
	building_frk     INTEGER NOT NULL,
	device_prk       INTEGER NOT NULL DEFAULT 0,
	ignore_on_arm    BOOLEAN NOT NULL DEFAULT 0,
	ignore_on_disarm BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ignored_proevents_building
	ON ignored_proevents(building_frk);

CREATE TABLE IF NOT EXISTS proevent_state_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	proevent_id  INTEGER NOT NULL,
	building_frk INTEGER NOT NULL,
	state        TEXT NOT NULL,
	timestamp    DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// New opens (creating if needed) the SQLite database at path and migrates it.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open schedule database: %w", err)
	}

	// SQLite allows one writer; a single connection keeps upserts serialized.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrate schedule database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// StoredWindow returns the raw stored window of a building, or ErrNotFound.
func (s *Store) StoredWindow(ctx context.Context, buildingID int64) (StoredWindow, error) {
	var (
		start string
		end   sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT start_time, end_time FROM building_times WHERE building_id = ?`,
		buildingID,
	).Scan(&start, &end)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredWindow{}, ErrNotFound
		}

		return StoredWindow{}, fmt.Errorf("query building %d schedule: %w", buildingID, err)
	}

	return StoredWindow{
		BuildingID: buildingID,
		Start:      start,
		End:        end.String,
	}, nil
}

// Window returns the parsed window of a building.
// It returns ErrNotFound when none is stored, or an error wrapping
// domain.ErrInvalidClock / domain.ErrInvalidWindow when the stored one is unusable.
func (s *Store) Window(ctx context.Context, buildingID int64) (domain.Window, error) {
	stored, err := s.StoredWindow(ctx, buildingID)
	if err != nil {
		return domain.Window{}, err
	}

	window, err := domain.ParseWindow(stored.Start, stored.End)
	if err != nil {
		return domain.Window{}, fmt.Errorf("building %d schedule: %w", buildingID, err)
	}

	return window, nil
}

// Windows returns every stored window keyed by building id; empty when none.
func (s *Store) Windows(ctx context.Context) (map[int64]StoredWindow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT building_id, start_time, end_time FROM building_times`)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	windows := make(map[int64]StoredWindow)

	for rows.Next() {
		var (
			w   StoredWindow
			end sql.NullString
		)

		if err = rows.Scan(&w.BuildingID, &w.Start, &end); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}

		w.End = end.String
		windows[w.BuildingID] = w
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}

	return windows, nil
}

// SetWindow inserts or updates a building's window.
// Both times must be HH:MM; end may be empty to clear it.
func (s *Store) SetWindow(ctx context.Context, buildingID int64, start, end string) error {
	if _, err := domain.ParseClock(start); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	var endValue sql.NullString

	if end != "" {
		if _, err := domain.ParseClock(end); err != nil {
			return fmt.Errorf("end: %w", err)
		}

		endValue = sql.NullString{String: end, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO building_times (building_id, start_time, end_time)
		VALUES (?, ?, ?)
		ON CONFLICT(building_id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time   = excluded.end_time,
			updated_at = CURRENT_TIMESTAMP`,
		buildingID, start, endValue,
	)
	if err != nil {
		return fmt.Errorf("upsert building %d schedule: %w", buildingID, err)
	}

	return nil
}

// Exceptions returns every exception rule keyed by proevent id; empty when none.
func (s *Store) Exceptions(ctx context.Context) (map[int64]domain.ExceptionRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT proevent_id, building_frk, device_prk, ignore_on_arm, ignore_on_disarm
		FROM ignored_proevents`)
	if err != nil {
		return nil, fmt.Errorf("query exception rules: %w", err)
	}
	defer rows.Close()

	rules := make(map[int64]domain.ExceptionRule)

	for rows.Next() {
		var rule domain.ExceptionRule

		err = rows.Scan(&rule.PointID, &rule.BuildingID, &rule.DeviceID, &rule.IgnoreOnArm, &rule.IgnoreOnDisarm)
		if err != nil {
			return nil, fmt.Errorf("scan exception rule: %w", err)
		}

		rules[rule.PointID] = rule
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exception rules: %w", err)
	}

	return rules, nil
}

// UpsertException stores the rule for rule.PointID, replacing any previous one.
func (s *Store) UpsertException(ctx context.Context, rule domain.ExceptionRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ignored_proevents (proevent_id, building_frk, device_prk, ignore_on_arm, ignore_on_disarm)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(proevent_id) DO UPDATE SET
			building_frk     = excluded.building_frk,
			device_prk       = excluded.device_prk,
			ignore_on_arm    = excluded.ignore_on_arm,
			ignore_on_disarm = excluded.ignore_on_disarm`,
		rule.PointID, rule.BuildingID, rule.DeviceID, rule.IgnoreOnArm, rule.IgnoreOnDisarm,
	)
	if err != nil {
		return fmt.Errorf("upsert exception rule for proevent %d: %w", rule.PointID, err)
	}

	return nil
}

// LogState appends a state change to the history. A zero point id means the whole building.
func (s *Store) LogState(ctx context.Context, pointID, buildingID int64, state string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proevent_state_history (proevent_id, building_frk, state) VALUES (?, ?, ?)`,
		pointID, buildingID, state,
	)
	if err != nil {
		return fmt.Errorf("log state of proevent %d: %w", pointID, err)
	}

	return nil
}

// HistoryEntry is one proevent_state_history row.
type HistoryEntry struct {
	PointID    int64
	BuildingID int64
	State      string
}

// History returns the most recent history rows of a building, newest first.
func (s *Store) History(ctx context.Context, buildingID int64, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT proevent_id, building_frk, state
		FROM proevent_state_history
		WHERE building_frk = ?
		ORDER BY id DESC
		LIMIT ?`,
		buildingID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query building %d history: %w", buildingID, err)
	}
	defer rows.Close()

	var entries []HistoryEntry

	for rows.Next() {
		var e HistoryEntry
		if err = rows.Scan(&e.PointID, &e.BuildingID, &e.State); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}

		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return entries, nil
}
