// Package history holds the ordered in-memory sequence of measurement records.
package history

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"example.com/bodymetrics/internal/measurement"
	"example.com/bodymetrics/internal/observability"
)

// ErrIndexOutOfRange is returned when a record position does not exist.
var ErrIndexOutOfRange = errors.New("record index out of range")

// Backend persists the full record sequence.
type Backend interface {
	Load(ctx context.Context) ([]measurement.Record, error)
	Save(ctx context.Context, records []measurement.Record) error
}

// History is the record sequence in insertion order. It never reorders records, so callers
// append chronologically for trend computations to be meaningful.
type History struct {
	records []measurement.Record
}

// New wraps an existing sequence.
func New(records []measurement.Record) *History {
	h := &History{records: make([]measurement.Record, 0, len(records))}
	for _, r := range records {
		h.records = append(h.records, r.Clone())
	}
	return h
}

// Load populates a History from the backend. A backend failure is not fatal: the history
// starts empty and the failure is logged and counted.
func Load(ctx context.Context, backend Backend, logger zerolog.Logger) *History {
	records, err := backend.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("measurement history unavailable, starting empty")
		observability.RecordStoreLoadFailure()
		records = nil
	}
	h := New(records)
	observability.SetHistorySize(h.Len())
	logger.Info().Int("records", h.Len()).Msg("measurement history loaded")
	return h
}

// Len reports the number of records.
func (h *History) Len() int {
	return len(h.records)
}

// Records returns a copy of the sequence.
func (h *History) Records() []measurement.Record {
	out := make([]measurement.Record, len(h.records))
	for i, r := range h.records {
		out[i] = r.Clone()
	}
	return out
}

// At returns the record at position i.
func (h *History) At(i int) (measurement.Record, error) {
	if i < 0 || i >= len(h.records) {
		return measurement.Record{}, ErrIndexOutOfRange
	}
	return h.records[i].Clone(), nil
}

// Last returns the most recently appended record.
func (h *History) Last() (measurement.Record, bool) {
	if len(h.records) == 0 {
		return measurement.Record{}, false
	}
	return h.records[len(h.records)-1].Clone(), true
}

// Append adds a record at the end and returns its position.
func (h *History) Append(r measurement.Record) int {
	h.records = append(h.records, r.Clone())
	return len(h.records) - 1
}

// Remove deletes the record at position i, shifting later records down.
func (h *History) Remove(i int) (measurement.Record, error) {
	if i < 0 || i >= len(h.records) {
		return measurement.Record{}, ErrIndexOutOfRange
	}
	removed := h.records[i]
	h.records = append(h.records[:i], h.records[i+1:]...)
	return removed, nil
}

// Insert places r at position i. It is used to undo a Remove.
func (h *History) Insert(i int, r measurement.Record) error {
	if i < 0 || i > len(h.records) {
		return ErrIndexOutOfRange
	}
	h.records = append(h.records, measurement.Record{})
	copy(h.records[i+1:], h.records[i:])
	h.records[i] = r.Clone()
	return nil
}

// Truncate drops records from position n onwards. It is used to undo an Append.
func (h *History) Truncate(n int) {
	if n < 0 || n >= len(h.records) {
		return
	}
	h.records = h.records[:n]
}
