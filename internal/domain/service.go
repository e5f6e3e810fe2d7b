// Package domain orchestrates the measurement history, its persistence and the analytics views.
package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/bodymetrics/internal/events"
	"example.com/bodymetrics/internal/history"
	"example.com/bodymetrics/internal/measurement"
	"example.com/bodymetrics/internal/observability"
	"example.com/bodymetrics/internal/persistence"
)

var (
	// ErrRecordNotFound is returned when a record position does not exist.
	ErrRecordNotFound = errors.New("measurement record not found")
	// ErrInvalidRecord wraps validation failures of captured records.
	ErrInvalidRecord = errors.New("invalid measurement record")
	// ErrStaleCursor indicates the history changed since the cursor was issued.
	ErrStaleCursor = errors.New("cursor no longer matches the history")
)

// Publisher announces history changes to downstream consumers.
type Publisher interface {
	PublishRecorded(ctx context.Context, evt events.MeasurementRecorded) error
	PublishRemoved(ctx context.Context, evt events.MeasurementRemoved) error
}

// CaptureInput carries a new observation from the API layer.
type CaptureInput struct {
	// Timestamp in YY-MM-DD form; empty means today.
	Timestamp string
	Values    map[measurement.Field]float64
}

// RecordView pairs a record with its position in the history.
type RecordView struct {
	Index  int
	Record measurement.Record
}

// Page is one slice of the listed history.
type Page struct {
	Items []RecordView
	Total int
	Next  *persistence.Cursor
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the time source used for default timestamps and trend windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger overrides the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service is safe for concurrent use; the analytics themselves run on a snapshot.
type Service struct {
	mu        sync.RWMutex
	history   *history.History
	backend   history.Backend
	publisher Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService constructs a Service over an already loaded history.
func NewService(hist *history.History, backend history.Backend, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		history:   hist,
		backend:   backend,
		publisher: publisher,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append validates and stores a new record at the end of the history. When the backend
// rejects the write the in-memory history is left unchanged.
func (s *Service) Append(ctx context.Context, input CaptureInput) (*RecordView, error) {
	now := s.now()
	timestamp := input.Timestamp
	if timestamp == "" {
		timestamp = measurement.FormatDate(now)
	}

	rec := measurement.Record{Timestamp: timestamp}
	for _, f := range measurement.Fields {
		if v, ok := input.Values[f]; ok {
			rec.Set(f, v)
		} else {
			rec.SetNull(f)
		}
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	s.mu.Lock()
	if last, ok := s.history.Last(); ok {
		s.warnIfOutOfOrder(last, rec)
	}
	index := s.history.Append(rec)
	if err := s.backend.Save(ctx, s.history.Records()); err != nil {
		s.history.Truncate(index)
		s.mu.Unlock()
		return nil, fmt.Errorf("save measurements: %w", err)
	}
	size := s.history.Len()
	s.mu.Unlock()

	observability.SetHistorySize(size)
	observability.RecordAppended(now)

	evt := events.MeasurementRecorded{
		EventID:    uuid.NewString(),
		Index:      index,
		Timestamp:  rec.Timestamp,
		Values:     rec.Values(),
		RecordedAt: now.UTC(),
	}
	if err := s.publisher.PublishRecorded(ctx, evt); err != nil {
		s.logger.Error().Err(err).Str("event_id", evt.EventID).Msg("failed to publish measurement.recorded")
	}

	return &RecordView{Index: index, Record: rec}, nil
}

func (s *Service) warnIfOutOfOrder(last, next measurement.Record) {
	prev, err := last.Date(time.UTC)
	if err != nil {
		return
	}
	cur, err := next.Date(time.UTC)
	if err != nil {
		return
	}
	if cur.Before(prev) {
		s.logger.Warn().
			Str("previous", last.Timestamp).
			Str("appended", next.Timestamp).
			Msg("measurement appended out of chronological order; trends use sequence order")
	}
}

// Remove deletes the record at index.
func (s *Service) Remove(ctx context.Context, index int) error {
	s.mu.Lock()
	removed, err := s.history.Remove(index)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, history.ErrIndexOutOfRange) {
			return ErrRecordNotFound
		}
		return err
	}
	if err := s.backend.Save(ctx, s.history.Records()); err != nil {
		_ = s.history.Insert(index, removed)
		s.mu.Unlock()
		return fmt.Errorf("save measurements: %w", err)
	}
	size := s.history.Len()
	s.mu.Unlock()

	observability.SetHistorySize(size)

	evt := events.MeasurementRemoved{
		EventID:   uuid.NewString(),
		Index:     index,
		Timestamp: removed.Timestamp,
		RemovedAt: s.now().UTC(),
	}
	if err := s.publisher.PublishRemoved(ctx, evt); err != nil {
		s.logger.Error().Err(err).Str("event_id", evt.EventID).Msg("failed to publish measurement.removed")
	}
	return nil
}

// List returns up to limit records starting at the cursor.
func (s *Service) List(cursor *persistence.Cursor, limit int) (Page, error) {
	s.mu.RLock()
	records := s.history.Records()
	s.mu.RUnlock()

	start := 0
	if cursor != nil {
		start = cursor.Offset
		if start < len(records) && records[start].Timestamp != cursor.Timestamp {
			return Page{}, ErrStaleCursor
		}
	}
	if start > len(records) {
		start = len(records)
	}
	end := len(records)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	page := Page{Items: make([]RecordView, 0, end-start), Total: len(records)}
	for i := start; i < end; i++ {
		page.Items = append(page.Items, RecordView{Index: i, Record: records[i]})
	}
	if end < len(records) {
		page.Next = &persistence.Cursor{Offset: end, Timestamp: records[end].Timestamp}
	}
	return page, nil
}

// Averages computes per-field averages across the whole history.
func (s *Service) Averages() (measurement.AverageReport, bool) {
	start := time.Now()
	records := s.snapshot()

	report, ok := measurement.Averages(records)
	observability.ObserveAnalytics("averages", outcome(ok, nil), time.Since(start))
	return report, ok
}

// Trends computes per-field deltas over the trailing periodDays.
func (s *Service) Trends(periodDays int) (measurement.TrendReport, bool, error) {
	start := time.Now()
	records := s.snapshot()

	report, ok, err := measurement.Trends(records, periodDays, s.now())
	observability.ObserveAnalytics("trends", outcome(ok, err), time.Since(start))
	if err != nil {
		s.logger.Error().Err(err).Int("period_days", periodDays).Msg("trend computation rejected malformed data")
	}
	return report, ok, err
}

func (s *Service) snapshot() []measurement.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Records()
}

func outcome(ok bool, err error) string {
	switch {
	case err != nil:
		return observability.OutcomeError
	case !ok:
		return observability.OutcomeNoData
	default:
		return observability.OutcomeReport
	}
}
