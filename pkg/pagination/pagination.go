package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size used when a listing omits the limit.
	DefaultLimit = 25
	// MaxLimit caps how many rows a single page can request.
	MaxLimit = 100
)

// ErrMalformedCursor is returned for cursors that do not decode into a
// timestamp and row id pair.
var ErrMalformedCursor = errors.New("malformed cursor")

// Params holds the pagination inputs accepted by listing endpoints.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor marks a position in a listing ordered by (created_at, id). The
// id breaks ties between rows created in the same nanosecond.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	payload := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// EncodeCursor builds the opaque token for the given position.
func EncodeCursor(cursor Cursor) string {
	return cursor.Encode()
}

// ParseCursor decodes a client-supplied token. A blank token means
// "first page" and yields a nil cursor without error.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	rawTime, rawID, found := strings.Cut(string(decoded), "|")
	if !found {
		return nil, ErrMalformedCursor
	}

	createdAt, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp: %v", ErrMalformedCursor, err)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad row id: %v", ErrMalformedCursor, err)
	}
	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}

// NormalizeLimit clamps the requested limit into [1, MaxLimit],
// substituting the default for missing or non-positive values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer is the normalized limit plus one sentinel row, fetched
// to decide whether a next-page cursor should be issued.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}
