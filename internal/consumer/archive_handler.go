package consumer

import (
	"context"
	"fmt"
	"time"

	"example.com/bodymetrics/internal/events"
	"example.com/bodymetrics/internal/persistence/postgres"
)

// EventLog stores consumed events.
type EventLog interface {
	AppendEvent(ctx context.Context, entry postgres.EventLogEntry) error
}

// ArchiveHandler writes measurement events into the audit log. Redeliveries are absorbed by
// the log's unique event id.
type ArchiveHandler struct {
	log   EventLog
	types map[string]struct{}
	now   func() time.Time
}

// NewArchiveHandler constructs a handler that archives measurement.recorded and
// measurement.removed events.
func NewArchiveHandler(log EventLog) *ArchiveHandler {
	return &ArchiveHandler{
		log: log,
		types: map[string]struct{}{
			events.TypeMeasurementRecorded: {},
			events.TypeMeasurementRemoved:  {},
		},
		now: time.Now,
	}
}

// Handle appends the event to the log. Events of other types are acknowledged without being stored.
func (h *ArchiveHandler) Handle(ctx context.Context, msg Message) error {
	if _, ok := h.types[msg.EventType]; !ok {
		recordSkipped(msg)
		return nil
	}

	receivedAt := msg.Timestamp
	if receivedAt.IsZero() {
		receivedAt = h.now()
	}

	entry := postgres.EventLogEntry{
		EventID:    msg.EventID,
		EventType:  msg.EventType,
		Topic:      msg.Topic,
		Partition:  msg.Partition,
		Offset:     msg.Offset,
		Payload:    msg.Payload,
		ReceivedAt: receivedAt.UTC(),
	}
	if err := h.log.AppendEvent(ctx, entry); err != nil {
		return fmt.Errorf("archive %s %s: %w", msg.EventType, msg.EventID, err)
	}
	return nil
}
