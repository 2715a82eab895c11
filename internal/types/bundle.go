package types

import "time"

// BundleVersion is the only export format version this build writes and
// the highest it accepts.
const BundleVersion = 1

// Bundle kinds.
const (
	BundleKindEncounter = "encounter"
	BundleKindAll       = "all"
)

// Bundle is the export/import document. Single-encounter exports from
// older builds carried the record under "encounter"; Normalize folds it into
// Encounters.
type Bundle struct {
	Version    int         `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Kind       string      `json:"kind"`
	Settings   *Settings   `json:"settings,omitempty"`
	Encounter  *Encounter  `json:"encounter,omitempty"`
	Encounters []Encounter `json:"encounters"`
	Events     []Event     `json:"events"`
}

// Normalize moves a legacy singular encounter into Encounters.
func (b *Bundle) Normalize() {
	if b.Encounter != nil {
		b.Encounters = append(b.Encounters, *b.Encounter)
		b.Encounter = nil
	}
}

// Validate checks the envelope. Records without an id are accepted and get
// one on import; records are otherwise validated individually.
func (b *Bundle) Validate() error {
	if b.Version == 0 {
		return NewAppError(ErrCodeValidationBundle, "bundle version is missing", nil)
	}
	if b.Version > BundleVersion {
		return NewAppErrorWithDetails(ErrCodeValidationBundle,
			"bundle version is not supported", nil,
			map[string]any{"version": b.Version, "supported": BundleVersion})
	}
	for i := range b.Events {
		if b.Events[i].EncounterID == "" {
			return NewAppErrorWithDetails(ErrCodeValidationBundle,
				"event without encounter_id", nil,
				map[string]any{"index": i})
		}
	}
	return nil
}

// ImportResult reports what an import changed.
type ImportResult struct {
	Mode              ImportMode `json:"mode"`
	EncountersWritten int        `json:"encounters_written"`
	EventsWritten     int        `json:"events_written"`
	SettingsReplaced  bool       `json:"settings_replaced"`
}
