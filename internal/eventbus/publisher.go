// Package eventbus publishes measurement history events to Kafka.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/bodymetrics/internal/events"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Publisher encodes events as JSON and writes them to a single topic.
type Publisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewPublisher constructs a Publisher.
func NewPublisher(writer messageWriter, topic string) *Publisher {
	return &Publisher{writer: writer, topic: topic, now: time.Now}
}

// PublishRecorded emits a measurement.recorded event.
func (p *Publisher) PublishRecorded(ctx context.Context, evt events.MeasurementRecorded) error {
	return p.publish(ctx, events.TypeMeasurementRecorded, evt.EventID, evt.Timestamp, evt)
}

// PublishRemoved emits a measurement.removed event.
func (p *Publisher) PublishRemoved(ctx context.Context, evt events.MeasurementRemoved) error {
	return p.publish(ctx, events.TypeMeasurementRemoved, evt.EventID, evt.Timestamp, evt)
}

func (p *Publisher) publish(ctx context.Context, eventType, eventID, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  p.now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(eventID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Noop discards events. It is used when no brokers are configured.
type Noop struct{}

// PublishRecorded does nothing.
func (Noop) PublishRecorded(context.Context, events.MeasurementRecorded) error { return nil }

// PublishRemoved does nothing.
func (Noop) PublishRemoved(context.Context, events.MeasurementRemoved) error { return nil }
