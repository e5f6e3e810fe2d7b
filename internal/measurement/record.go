package measurement

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the persisted timestamp format (two-digit year, day granularity).
const DateLayout = "06-01-02"

const timestampKey = "Timestamp"

// Reading is one field value on a record. A nil Value is an explicit null.
type Reading struct {
	Field Field
	Value *float64
}

// Record is a single observation of body measurements taken on one day.
type Record struct {
	// Timestamp holds the raw persisted date so malformed values survive a load.
	Timestamp string
	Readings  []Reading
}

// NewRecord builds a record for the given day with readings in canonical field order.
func NewRecord(date time.Time, values map[Field]float64) Record {
	rec := Record{Timestamp: FormatDate(date)}
	for _, f := range Fields {
		if v, ok := values[f]; ok {
			rec.Set(f, v)
		}
	}
	return rec
}

// FormatDate renders t in the persisted date layout, dropping everything below day precision.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a persisted date string in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, value, loc)
}

// Date parses the record's timestamp in loc.
func (r Record) Date(loc *time.Location) (time.Time, error) {
	return ParseDate(r.Timestamp, loc)
}

// Value returns the field's value when it is present and non-null.
func (r Record) Value(f Field) (float64, bool) {
	for _, rd := range r.Readings {
		if rd.Field == f {
			if rd.Value == nil {
				return 0, false
			}
			return *rd.Value, true
		}
	}
	return 0, false
}

// Set stores a value for the field, keeping the field's existing position if it already has one.
func (r *Record) Set(f Field, v float64) {
	r.put(f, &v)
}

// SetNull records an explicit null for the field.
func (r *Record) SetNull(f Field) {
	r.put(f, nil)
}

func (r *Record) put(f Field, v *float64) {
	for i := range r.Readings {
		if r.Readings[i].Field == f {
			r.Readings[i].Value = v
			return
		}
	}
	r.Readings = append(r.Readings, Reading{Field: f, Value: v})
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := Record{Timestamp: r.Timestamp}
	if r.Readings == nil {
		return out
	}
	out.Readings = make([]Reading, len(r.Readings))
	for i, rd := range r.Readings {
		out.Readings[i].Field = rd.Field
		if rd.Value != nil {
			v := *rd.Value
			out.Readings[i].Value = &v
		}
	}
	return out
}

// Values returns the readings keyed by field name; explicit nulls map to nil.
func (r Record) Values() map[string]*float64 {
	out := make(map[string]*float64, len(r.Readings))
	for _, rd := range r.Readings {
		if rd.Value == nil {
			out[string(rd.Field)] = nil
			continue
		}
		v := *rd.Value
		out[string(rd.Field)] = &v
	}
	return out
}

// Validate checks the invariants enforced on newly captured records.
func (r Record) Validate() error {
	if _, err := ParseDate(r.Timestamp, time.UTC); err != nil {
		return &TimestampError{Index: -1, Value: r.Timestamp, Err: err}
	}
	if _, ok := r.Value(Weight); !ok {
		return errors.New("weight is required")
	}
	for _, rd := range r.Readings {
		if rd.Value != nil && *rd.Value < 0 {
			return fmt.Errorf("%s must not be negative", rd.Field)
		}
	}
	return nil
}

// MarshalJSON writes the timestamp first followed by readings in their stored order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	key, _ := json.Marshal(timestampKey)
	ts, err := json.Marshal(r.Timestamp)
	if err != nil {
		return nil, err
	}
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(ts)

	for _, rd := range r.Readings {
		name, err := json.Marshal(string(rd.Field))
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		if rd.Value == nil {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(*rd.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a record object preserving the order of its keys.
// Unknown keys are skipped; a null record, a non-numeric field value or a non-string timestamp
// is an error. Negative values are kept as stored.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("measurement record must be a JSON object")
	}

	out := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		if key == timestampKey {
			if err := json.Unmarshal(raw, &out.Timestamp); err != nil {
				return fmt.Errorf("timestamp: %w", err)
			}
			continue
		}

		field, ok := ParseField(key)
		if !ok {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			out.SetNull(field)
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		out.Set(field, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}
