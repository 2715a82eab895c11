package types

import (
	"errors"
	"strings"
	"time"
)

// PageInfo contains pagination metadata for list responses.
type PageInfo struct {
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
	TotalItems *int   `json:"total_items,omitempty"`
}

// ResponseMeta contains non-blocking metadata returned with API responses.
type ResponseMeta struct {
	Warnings   []string  `json:"warnings,omitempty"`
	Pagination *PageInfo `json:"pagination,omitempty"`
}

// EncounterFilter narrows an encounter listing. Cursor is the
// EncounterCursor of the last row of the previous page.
type EncounterFilter struct {
	Status EncounterStatus
	Limit  int
	Cursor string
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// NormalizedLimit clamps Limit into [1, MaxPageLimit], defaulting to
// DefaultPageLimit.
func (f EncounterFilter) NormalizedLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultPageLimit
	case f.Limit > MaxPageLimit:
		return MaxPageLimit
	}
	return f.Limit
}

// EncounterCursor is a keyset position in the (updated_at DESC, id DESC)
// listing order.
type EncounterCursor struct {
	UpdatedAt time.Time
	ID        string
}

// CursorAfter returns the cursor positioned after enc.
func CursorAfter(enc *Encounter) EncounterCursor {
	return EncounterCursor{UpdatedAt: enc.UpdatedAt, ID: enc.ID}
}

// String encodes the cursor as "<RFC3339Nano>,<id>".
func (c EncounterCursor) String() string {
	return c.UpdatedAt.UTC().Format(time.RFC3339Nano) + "," + c.ID
}

// ParseEncounterCursor decodes String's output. A bare timestamp is
// accepted and yields an empty ID.
func ParseEncounterCursor(s string) (EncounterCursor, error) {
	ts, id, _ := strings.Cut(s, ",")
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return EncounterCursor{}, err
	}
	if strings.Contains(s, ",") && id == "" {
		return EncounterCursor{}, errors.New("cursor id is empty")
	}
	return EncounterCursor{UpdatedAt: t, ID: id}, nil
}

// Before reports whether enc sorts after the cursor position, i.e. belongs
// on a later page.
func (c EncounterCursor) Before(enc *Encounter) bool {
	if !enc.UpdatedAt.Equal(c.UpdatedAt) {
		return enc.UpdatedAt.Before(c.UpdatedAt)
	}
	return c.ID != "" && enc.ID < c.ID
}
