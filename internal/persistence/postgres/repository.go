package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/bodymetrics/internal/measurement"
)

var measurementColumns = []string{"taken_on", "weight", "bicep", "chest", "waist", "thigh", "calf"}

// Repository provides Postgres-backed persistence for measurement history and the event log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Load returns all measurement records in insertion order.
func (r *Repository) Load(ctx context.Context) ([]measurement.Record, error) {
	const query = `SELECT taken_on, weight, bicep, chest, waist, thigh, calf FROM measurements ORDER BY seq`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]measurement.Record, 0)
	for rows.Next() {
		var takenOn string
		values := make([]*float64, len(measurement.Fields))
		dest := []any{&takenOn}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		rec := measurement.Record{Timestamp: takenOn}
		for i, f := range measurement.Fields {
			if values[i] != nil {
				rec.Set(f, *values[i])
			}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Save replaces the stored sequence inside a single transaction.
func (r *Repository) Save(ctx context.Context, records []measurement.Record) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM measurements`); err != nil {
		return err
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		row := []any{rec.Timestamp}
		for _, f := range measurement.Fields {
			if v, ok := rec.Value(f); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		rows = append(rows, row)
	}

	if _, err = tx.CopyFrom(ctx, pgx.Identifier{"measurements"}, measurementColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy measurements: %w", err)
	}

	err = tx.Commit(ctx)
	return err
}

// EventLogEntry is a consumed event stored for auditing.
type EventLogEntry struct {
	EventID    string
	EventType  string
	Topic      string
	Partition  int
	Offset     int64
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// AppendEvent stores an event in measurement_event_log. Redelivered events are ignored.
func (r *Repository) AppendEvent(ctx context.Context, entry EventLogEntry) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx,
		`INSERT INTO measurement_event_log (event_id, event_type, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (event_id) DO NOTHING`,
		entry.EventID,
		entry.EventType,
		entry.Topic,
		entry.Partition,
		entry.Offset,
		entry.Payload,
		entry.ReceivedAt,
	)
	return err
}
