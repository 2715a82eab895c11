package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"laborcurve/internal/types"
)

// queryTime parses an optional RFC 3339 query parameter.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationTimestamp,
			name+" must be an RFC 3339 timestamp", err,
			map[string]any{"param": name, "value": raw})
	}
	return &t, nil
}

// queryBool reads a flag. "1", "true", "yes" and "on" are true; absent is
// def.
func queryBool(r *http.Request, name string, def bool) bool {
	q := r.URL.Query()
	if !q.Has(name) {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(q.Get(name))) {
	case "1", "true", "yes", "on", "":
		return true
	}
	return false
}

// queryFloat parses an optional float; ok is false when absent.
func queryFloat(r *http.Request, name string) (v float64, ok bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidRequest,
			name+" must be a number", err,
			map[string]any{"param": name, "value": raw})
	}
	return v, true, nil
}

// queryLimit parses ?limit=; zero means the default page size.
func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > types.MaxPageLimit {
		return 0, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidRequest,
			"limit must be a number between 1 and 200", err,
			map[string]any{"param": "limit", "value": raw})
	}
	return n, nil
}
