package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

var (
	_ sql.Scanner   = (*Settings)(nil)
	_ driver.Valuer = Settings{}
)

// scanJSONB decodes a JSONB column delivered as []byte or string.
func scanJSONB(dest any, value any) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// Scan implements sql.Scanner. A NULL column leaves the receiver untouched,
// so callers start from DefaultSettings.
func (s *Settings) Scan(value any) error {
	return scanJSONB(s, value)
}

// Value implements driver.Valuer.
func (s Settings) Value() (driver.Value, error) {
	return json.Marshal(s)
}
