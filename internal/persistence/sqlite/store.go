// Package sqlite persists measurement history in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"example.com/bodymetrics/internal/measurement"
)

// Store keeps one row per record; seq preserves insertion order.
type Store struct {
	db *sql.DB
}

// Open connects to the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS measurements (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_on TEXT NOT NULL,
		weight REAL,
		bicep REAL,
		chest REAL,
		waist REAL,
		thigh REAL,
		calf REAL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load returns all records in insertion order.
func (s *Store) Load(ctx context.Context) ([]measurement.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT taken_on, weight, bicep, chest, waist, thigh, calf FROM measurements ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	records := make([]measurement.Record, 0)
	for rows.Next() {
		var takenOn string
		cols := make([]sql.NullFloat64, len(measurement.Fields))
		dest := []any{&takenOn}
		for i := range cols {
			dest = append(dest, &cols[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}

		rec := measurement.Record{Timestamp: takenOn}
		for i, f := range measurement.Fields {
			if cols[i].Valid {
				rec.Set(f, cols[i].Float64)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Save replaces the stored sequence in a single transaction.
func (s *Store) Save(ctx context.Context, records []measurement.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM measurements`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO measurements (taken_on, weight, bicep, chest, waist, thigh, calf) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err = stmt.ExecContext(ctx, rowArgs(rec)...); err != nil {
			return fmt.Errorf("failed to insert measurement %s: %w", rec.Timestamp, err)
		}
	}

	return tx.Commit()
}

func rowArgs(rec measurement.Record) []any {
	args := []any{rec.Timestamp}
	for _, f := range measurement.Fields {
		if v, ok := rec.Value(f); ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	return args
}
