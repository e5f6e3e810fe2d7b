package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/bodymetrics/internal/events"
	"example.com/bodymetrics/internal/history"
	"example.com/bodymetrics/internal/measurement"
	"example.com/bodymetrics/internal/observability"
	"example.com/bodymetrics/internal/persistence"
)

type memoryBackend struct {
	saved   []measurement.Record
	saveErr error
	saves   int
}

func (m *memoryBackend) Load(context.Context) ([]measurement.Record, error) {
	return m.saved, nil
}

func (m *memoryBackend) Save(_ context.Context, records []measurement.Record) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = records
	return nil
}

type recordingPublisher struct {
	recorded []events.MeasurementRecorded
	removed  []events.MeasurementRemoved
	err      error
}

func (p *recordingPublisher) PublishRecorded(_ context.Context, evt events.MeasurementRecorded) error {
	p.recorded = append(p.recorded, evt)
	return p.err
}

func (p *recordingPublisher) PublishRemoved(_ context.Context, evt events.MeasurementRemoved) error {
	p.removed = append(p.removed, evt)
	return p.err
}

var testNow = time.Date(2024, time.February, 15, 9, 30, 0, 0, time.UTC)

func newTestService(records ...measurement.Record) (*Service, *memoryBackend, *recordingPublisher) {
	backend := &memoryBackend{}
	publisher := &recordingPublisher{}
	svc := NewService(history.New(records), backend, publisher, WithClock(func() time.Time { return testNow }))
	return svc, backend, publisher
}

func record(ts string, weight float64) measurement.Record {
	r := measurement.Record{Timestamp: ts}
	r.Set(measurement.Weight, weight)
	return r
}

func TestAppendDefaultsTimestampAndPersists(t *testing.T) {
	svc, backend, publisher := newTestService()

	view, err := svc.Append(context.Background(), CaptureInput{
		Values: map[measurement.Field]float64{measurement.Weight: 70.5, measurement.Waist: 81},
	})
	require.NoError(t, err)
	require.Equal(t, 0, view.Index)
	require.Equal(t, "24-02-15", view.Record.Timestamp)
	require.Len(t, view.Record.Readings, len(measurement.Fields))

	_, ok := view.Record.Value(measurement.Bicep)
	require.False(t, ok)

	require.Len(t, backend.saved, 1)
	require.Len(t, publisher.recorded, 1)
	require.Equal(t, "24-02-15", publisher.recorded[0].Timestamp)
	require.NotEmpty(t, publisher.recorded[0].EventID)
	require.Equal(t, 70.5, *publisher.recorded[0].Values["Weight"])
	require.Nil(t, publisher.recorded[0].Values["Calf"])
}

func TestAppendRejectsInvalidInput(t *testing.T) {
	svc, backend, _ := newTestService()

	_, err := svc.Append(context.Background(), CaptureInput{Timestamp: "15/02/2024", Values: map[measurement.Field]float64{measurement.Weight: 70}})
	require.ErrorIs(t, err, ErrInvalidRecord)

	_, err = svc.Append(context.Background(), CaptureInput{Values: map[measurement.Field]float64{measurement.Weight: -2}})
	require.ErrorIs(t, err, ErrInvalidRecord)

	require.Zero(t, backend.saves)
}

func TestAppendRollsBackWhenSaveFails(t *testing.T) {
	svc, backend, publisher := newTestService(record("24-02-01", 72))
	backend.saveErr = errors.New("disk full")

	_, err := svc.Append(context.Background(), CaptureInput{Values: map[measurement.Field]float64{measurement.Weight: 71}})
	require.Error(t, err)

	page, err := svc.List(nil, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Empty(t, publisher.recorded)
}

func TestAppendSucceedsWhenPublishFails(t *testing.T) {
	svc, backend, publisher := newTestService()
	publisher.err = errors.New("broker down")

	_, err := svc.Append(context.Background(), CaptureInput{Values: map[measurement.Field]float64{measurement.Weight: 71}})
	require.NoError(t, err)
	require.Len(t, backend.saved, 1)
}

func TestRemove(t *testing.T) {
	svc, backend, publisher := newTestService(record("24-01-01", 70), record("24-02-01", 72))

	require.NoError(t, svc.Remove(context.Background(), 0))
	require.Len(t, backend.saved, 1)
	require.Equal(t, "24-02-01", backend.saved[0].Timestamp)
	require.Len(t, publisher.removed, 1)
	require.Equal(t, "24-01-01", publisher.removed[0].Timestamp)

	require.ErrorIs(t, svc.Remove(context.Background(), 4), ErrRecordNotFound)
}

func TestRemoveRestoresRecordWhenSaveFails(t *testing.T) {
	svc, backend, _ := newTestService(record("24-01-01", 70), record("24-02-01", 72))
	backend.saveErr = errors.New("disk full")

	require.Error(t, svc.Remove(context.Background(), 0))

	page, err := svc.List(nil, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, "24-01-01", page.Items[0].Record.Timestamp)
}

func TestListPagination(t *testing.T) {
	svc, _, _ := newTestService(record("24-01-01", 70), record("24-01-08", 71), record("24-01-15", 72))

	page, err := svc.List(nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 3, page.Total)
	require.NotNil(t, page.Next)
	require.Equal(t, 2, page.Next.Offset)

	page, err = svc.List(page.Next, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, 2, page.Items[0].Index)
	require.Nil(t, page.Next)

	_, err = svc.List(&persistence.Cursor{Offset: 1, Timestamp: "99-01-01"}, 2)
	require.ErrorIs(t, err, ErrStaleCursor)

	page, err = svc.List(&persistence.Cursor{Offset: 10}, 2)
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestAveragesAndTrends(t *testing.T) {
	svc, _, _ := newTestService(record("24-01-01", 70), record("24-02-01", 72))

	avg, ok := svc.Averages()
	require.True(t, ok)
	weight, _ := avg.Get(measurement.Weight)
	require.Equal(t, 71.0, weight.Mean)

	trend, ok, err := svc.Trends(60)
	require.NoError(t, err)
	require.True(t, ok)
	delta, _ := trend.Get(measurement.Weight)
	require.Equal(t, 2.0, delta.Delta)
}

func TestEmptyHistoryHasNoData(t *testing.T) {
	svc, _, _ := newTestService()

	_, ok := svc.Averages()
	require.False(t, ok)

	_, ok, err := svc.Trends(30)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTrendsCountsMalformedTimestamps(t *testing.T) {
	svc, _, _ := newTestService(record("invalid-date", 70))
	before := testutil.ToFloat64(observability.TimestampParseErrors)

	_, _, err := svc.Trends(30)
	require.ErrorIs(t, err, measurement.ErrMalformedTimestamp)
	require.Equal(t, before+1, testutil.ToFloat64(observability.TimestampParseErrors))
}
