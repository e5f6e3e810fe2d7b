// Package events defines the payloads published when the measurement history changes.
package events

import "time"

// Event types carried in the event_type message header.
const (
	TypeMeasurementRecorded = "measurement.recorded"
	TypeMeasurementRemoved  = "measurement.removed"
)

// MeasurementRecorded is emitted when a record is appended to the history.
type MeasurementRecorded struct {
	EventID    string              `json:"event_id"`
	Index      int                 `json:"index"`
	Timestamp  string              `json:"timestamp"`
	Values     map[string]*float64 `json:"values"`
	RecordedAt time.Time           `json:"recorded_at"`
}

// MeasurementRemoved is emitted when a record is deleted from the history.
type MeasurementRemoved struct {
	EventID   string    `json:"event_id"`
	Index     int       `json:"index"`
	Timestamp string    `json:"timestamp"`
	RemovedAt time.Time `json:"removed_at"`
}
