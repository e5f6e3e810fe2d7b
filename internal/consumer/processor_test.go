package consumer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"event_id":"evt-1","index":0,"timestamp":"24-02-01"}`)
	msg := kafka.Message{
		Topic:     "measurement_events",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Value:     payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("measurement.recorded")},
			{Key: "event_id", Value: []byte("evt-1")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(zerolog.New(testWriter{t})))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "measurement.recorded", handler.last.EventType)
	require.Equal(t, "evt-1", handler.last.EventID)
	require.Equal(t, int64(10), handler.last.Offset)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:     "measurement_events",
		Partition: 0,
		Offset:    20,
		Time:      time.Now().UTC(),
		Value:     []byte(`{"event_id":"evt-2","index":3,"timestamp":"24-02-01"}`),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("measurement.removed")},
			{Key: "event_id", Value: []byte("evt-2")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}

	processor := NewProcessor(reader, handler, WithLogger(zerolog.New(testWriter{t})))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorCommitsUndecodableMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bad := []kafka.Message{
		{Topic: "poison", Value: []byte("not json"), Headers: []kafka.Header{{Key: "event_type", Value: []byte("measurement.recorded")}}},
		{Topic: "poison", Value: []byte(`{"event_id":"x"}`)},
		{Topic: "poison"},
	}
	reader := &stubReader{messages: bad, after: contextCanceled}
	handler := &stubHandler{}
	before := testutil.ToFloat64(decodeErrorCounter.WithLabelValues("poison"))

	var logs bytes.Buffer
	processor := NewProcessor(reader, handler, WithLogger(zerolog.New(&logs)))

	require.ErrorIs(t, processor.Run(ctx), context.Canceled)
	require.Zero(t, handler.calls)
	require.Equal(t, len(bad), reader.commitCalls)
	require.Equal(t, before+float64(len(bad)), testutil.ToFloat64(decodeErrorCounter.WithLabelValues("poison")))
	require.Contains(t, logs.String(), "decode error")
}

func TestDecodeMessageFallsBackToPayloadEventID(t *testing.T) {
	msg := kafka.Message{
		Value:   []byte(`{"event_id":"evt-9"}`),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte("measurement.removed")}},
	}

	decoded, err := decodeMessage(msg)
	require.NoError(t, err)
	require.Equal(t, "evt-9", decoded.EventID)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
