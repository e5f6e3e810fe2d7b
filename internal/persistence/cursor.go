// Package persistence contains helpers shared by history backends.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Cursor marks the position of the next page when listing records.
type Cursor struct {
	Offset int
	// Timestamp of the record at Offset when the cursor was issued.
	Timestamp string
}

// EncodeCursor serialises the cursor to a string token.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%d|%s", c.Offset, c.Timestamp)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses the encoded cursor token.
func DecodeCursor(token string) (*Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}
	offset, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("invalid cursor offset %d", offset)
	}
	return &Cursor{Offset: offset, Timestamp: parts[1]}, nil
}
