package types

import (
	"strings"
	"time"
)

// Encounter identifies one labor episode. Identity fields are fixed at
// creation; status, outcome, tags and notes change over its lifetime.
type Encounter struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	StartedAt           time.Time       `json:"started_at"`
	Parity              Parity          `json:"parity"`
	GestationalAgeWeeks *float64        `json:"ga_weeks,omitempty"`
	IsInduction         bool            `json:"is_induction"`
	EpiduralPlanned     bool            `json:"epidural_planned"`
	Status              EncounterStatus `json:"status"`
	OutcomeAt           *time.Time      `json:"outcome_at,omitempty"`
	OutcomeMode         OutcomeMode     `json:"outcome_mode,omitempty"`
	OutcomeNote         string          `json:"outcome_note,omitempty"`
	Tags                string          `json:"tags,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Validate checks the fields a caller must supply before the encounter is
// stored or fed to the predictor.
func (e *Encounter) Validate() error {
	if !e.Parity.IsValid() {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidParity,
			"parity must be nullip or multip", nil,
			map[string]any{"parity": string(e.Parity)})
	}
	if e.Status != "" && !e.Status.IsValid() {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidStatus,
			"status must be open, delivered or cs", nil,
			map[string]any{"status": string(e.Status)})
	}
	if e.GestationalAgeWeeks != nil {
		ga := *e.GestationalAgeWeeks
		if ga < MinGestationalAgeWeeks || ga > MaxGestationalAgeWeeks {
			return NewAppError(ErrCodeValidationInvalidRequest,
				"ga_weeks must be between 20 and 45", nil)
		}
	}
	if len(e.Title) > MaxTitleLength {
		return NewAppError(ErrCodeValidationInvalidRequest, "title is too long", nil)
	}
	return nil
}

// EffectiveParity defaults unknown parity to nullip, the slower prior.
func (e *Encounter) EffectiveParity() Parity {
	if e == nil || !e.Parity.IsValid() {
		return ParityNullip
	}
	return e.Parity
}

// Outcome is the payload recorded when labor ends (or is re-opened).
type Outcome struct {
	Status EncounterStatus `json:"status"`
	At     *time.Time      `json:"outcome_at,omitempty"`
	Mode   OutcomeMode     `json:"outcome_mode,omitempty"`
	Note   string          `json:"outcome_note,omitempty"`
}

// Validate checks status and mode.
func (o *Outcome) Validate() error {
	if !o.Status.IsValid() {
		return NewAppError(ErrCodeValidationInvalidStatus, "status must be open, delivered or cs", nil)
	}
	switch o.Mode {
	case "", OutcomeVaginal, OutcomeCesarean, OutcomeUnknown:
	default:
		return NewAppError(ErrCodeValidationInvalidRequest, "outcome_mode must be vaginal, cs or unknown", nil)
	}
	if o.Status.IsClosed() && o.At == nil {
		return NewAppError(ErrCodeValidationMissingField, "outcome_at is required for a closed encounter", nil)
	}
	return nil
}

// Apply copies the outcome onto the encounter.
func (o *Outcome) Apply(e *Encounter) {
	e.Status = o.Status
	e.OutcomeAt = o.At
	e.OutcomeMode = o.Mode
	e.OutcomeNote = strings.TrimSpace(o.Note)
}

// ArchiveRecord is a closed encounter packed for cold storage.
type ArchiveRecord struct {
	ID             string    `json:"id"`
	EncounterID    string    `json:"encounter_id"`
	Bundle         []byte    `json:"-"`
	Encoding       string    `json:"encoding"`
	EventCount     int       `json:"event_count"`
	ReplayPoints   int       `json:"replay_points"`
	MeanAbsErrorHr *float64  `json:"mean_abs_error_hr,omitempty"`
	ArchivedAt     time.Time `json:"archived_at"`
}
