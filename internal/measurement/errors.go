package measurement

import (
	"errors"
	"fmt"
)

// ErrMalformedTimestamp marks a record whose timestamp cannot be parsed as a persisted date.
var ErrMalformedTimestamp = errors.New("malformed measurement timestamp")

// TimestampError reports which record carried an unparseable timestamp.
type TimestampError struct {
	// Index is the record's position in the sequence, or -1 when it is not part of one.
	Index int
	Value string
	Err   error
}

func (e *TimestampError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s %q: %v", ErrMalformedTimestamp, e.Value, e.Err)
	}
	return fmt.Sprintf("%s %q at record %d: %v", ErrMalformedTimestamp, e.Value, e.Index, e.Err)
}

// Is lets errors.Is match ErrMalformedTimestamp.
func (e *TimestampError) Is(target error) bool {
	return target == ErrMalformedTimestamp
}

func (e *TimestampError) Unwrap() error {
	return e.Err
}
