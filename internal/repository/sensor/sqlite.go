package sensor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// schema creates the sensor table. Sensors are keyed by name and type.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sensors (
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (name, type)
	)`,
}

// errPathRequired is returned when the database path is empty.
var errPathRequired = errors.New("sqlite path is required")

// SQLiteStore persists sensors in a SQLite database.
type SQLiteStore struct {
	// db is the shared connection pool.
	db *sqlx.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errPathRequired
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// SQLite allows a single writer; one connection avoids SQLITE_BUSY between our own calls.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	for _, stmt := range schema {
		if _, err = db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Add inserts the sensor or replaces the one with the same identity.
func (s *SQLiteStore) Add(ctx context.Context, sensor domain.Sensor) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sensors (name, type, active, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (name, type) DO UPDATE SET active = excluded.active, updated_at = excluded.updated_at`,
		sensor.Name,
		string(sensor.Type),
		sensor.Active,
		nowMillis(),
	)
	if err != nil {
		return fmt.Errorf("add sensor %s: %w", sensor.Key(), err)
	}

	return nil
}

// Remove deletes the sensor.
func (s *SQLiteStore) Remove(ctx context.Context, sensor domain.Sensor) error {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM sensors WHERE name = ? AND type = ?`,
		sensor.Name,
		string(sensor.Type),
	)
	if err != nil {
		return fmt.Errorf("remove sensor %s: %w", sensor.Key(), err)
	}

	return requireAffected(result.RowsAffected, "remove", sensor)
}

// Update overwrites the stored active flag.
func (s *SQLiteStore) Update(ctx context.Context, sensor domain.Sensor) error {
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE sensors SET active = ?, updated_at = ? WHERE name = ? AND type = ?`,
		sensor.Active,
		nowMillis(),
		sensor.Name,
		string(sensor.Type),
	)
	if err != nil {
		return fmt.Errorf("update sensor %s: %w", sensor.Key(), err)
	}

	return requireAffected(result.RowsAffected, "update", sensor)
}

// List returns all sensors ordered by name and type.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Sensor, error) {
	var sensors []domain.Sensor

	err := s.db.SelectContext(ctx, &sensors, `SELECT name, type, active FROM sensors ORDER BY name, type`)
	if err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}

	return sensors, nil
}

// Clear removes every sensor.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sensors`); err != nil {
		return fmt.Errorf("clear sensors: %w", err)
	}

	return nil
}

// requireAffected maps "zero rows touched" to ErrNotFound.
func requireAffected(rowsAffected func() (int64, error), op string, sensor domain.Sensor) error {
	n, err := rowsAffected()
	if err != nil {
		return fmt.Errorf("%s sensor %s: rows affected: %w", op, sensor.Key(), err)
	}

	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, sensor.Key(), ErrNotFound)
	}

	return nil
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}
