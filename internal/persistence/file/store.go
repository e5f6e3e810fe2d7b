// Package file persists measurement history as a JSON document on disk.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"example.com/bodymetrics/internal/measurement"
)

// Store reads and writes a JSON array of records. The document format is the authoritative
// interchange format: timestamps are YY-MM-DD strings and field values numbers or null.
type Store struct {
	path   string
	logger zerolog.Logger
}

// NewStore constructs a Store for the given path.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{path: path, logger: logger.With().Str("store", "file").Str("path", path).Logger()}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing, unreadable, empty or malformed document is treated as
// "no history yet": the result is empty and no error is returned. A null array element makes the
// whole document malformed. Loaded values are not range checked.
func (s *Store) Load(ctx context.Context) ([]measurement.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info().Msg("no measurement file yet")
		} else {
			s.logger.Warn().Err(err).Msg("measurement file unreadable")
		}
		return []measurement.Record{}, nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []measurement.Record{}, nil
	}

	var records []measurement.Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn().Err(err).Msg("measurement file is not a valid record list")
		return []measurement.Record{}, nil
	}
	if records == nil {
		records = []measurement.Record{}
	}
	return records, nil
}

// Save writes the full sequence, replacing the document atomically.
func (s *Store) Save(ctx context.Context, records []measurement.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []measurement.Record{}
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode measurements: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create measurement dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".measurements-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write measurements: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace measurement file: %w", err)
	}

	s.logger.Debug().Int("records", len(records)).Msg("measurements saved")
	return nil
}
