package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is a timestamped clinical observation belonging to one encounter.
// Data holds exactly one variant; the variant determines the kind.
type Event struct {
	ID          string
	EncounterID string
	Timestamp   time.Time
	Data        EventData
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Kind returns the tag of the carried variant.
func (e Event) Kind() EventKind {
	if e.Data == nil {
		return ""
	}
	return e.Data.Kind()
}

// Note returns the free-text note of the carried variant.
func (e Event) Note() string {
	if e.Data == nil {
		return ""
	}
	return e.Data.EventNote()
}

// Accept dispatches the event to the visitor method for its variant.
func (e Event) Accept(v EventVisitor) {
	if e.Data != nil {
		e.Data.accept(e, v)
	}
}

// EventData is the sealed set of event variants. Adding a variant means
// implementing accept, which forces a new EventVisitor method, which in turn
// breaks every visitor until it handles the new kind.
type EventData interface {
	Kind() EventKind
	EventNote() string
	Validate() error
	accept(e Event, v EventVisitor)
}

// EventVisitor has one method per event variant.
type EventVisitor interface {
	VisitExam(e Event, d ExamData)
	VisitRupture(e Event, d RuptureData)
	VisitMedication(e Event, d MedicationData)
	VisitVitals(e Event, d VitalsData)
	VisitFetal(e Event, d FetalData)
}

// ExamData is a sterile vaginal exam (SVE).
type ExamData struct {
	DilationCm    float64       `json:"dilation_cm"`
	EffacementPct *float64      `json:"effacement_pct,omitempty"`
	Station       *float64      `json:"station,omitempty"`
	Position      FetalPosition `json:"position,omitempty"`
	Caput         *int          `json:"caput,omitempty"`
	Molding       *int          `json:"molding,omitempty"`
	Note          string        `json:"note,omitempty"`
}

func (ExamData) Kind() EventKind                  { return EventKindExam }
func (d ExamData) EventNote() string              { return d.Note }
func (d ExamData) accept(e Event, v EventVisitor) { v.VisitExam(e, d) }

// Validate enforces clinical ranges on the exam fields.
func (d ExamData) Validate() error {
	if d.DilationCm < MinDilationCm || d.DilationCm > MaxDilationCm {
		return NewAppErrorWithDetails(ErrCodeValidationDilation,
			"dilation_cm must be between 0 and 10", nil,
			map[string]any{"dilation_cm": d.DilationCm})
	}
	if d.EffacementPct != nil && (*d.EffacementPct < 0 || *d.EffacementPct > 100) {
		return invalidEvent("effacement_pct must be between 0 and 100")
	}
	if d.Station != nil && (*d.Station < MinStation || *d.Station > MaxStation) {
		return invalidEvent("station must be between -5 and 5")
	}
	switch FetalPosition(strings.ToLower(string(d.Position))) {
	case PositionUnknown, PositionAnterior, PositionPosterior, PositionTransverse:
	default:
		return invalidEvent("position must be oa, op, ot or empty")
	}
	if d.Caput != nil && (*d.Caput < 0 || *d.Caput > MaxCaputMolding) {
		return invalidEvent("caput must be between 0 and 3")
	}
	if d.Molding != nil && (*d.Molding < 0 || *d.Molding > MaxCaputMolding) {
		return invalidEvent("molding must be between 0 and 3")
	}
	return nil
}

// RuptureData is a rupture-of-membranes event.
type RuptureData struct {
	Fluid    FluidType `json:"fluid,omitempty"`
	Meconium bool      `json:"meconium"`
	Note     string    `json:"note,omitempty"`
}

func (RuptureData) Kind() EventKind                  { return EventKindRupture }
func (d RuptureData) EventNote() string              { return d.Note }
func (d RuptureData) accept(e Event, v EventVisitor) { v.VisitRupture(e, d) }

func (d RuptureData) Validate() error {
	switch d.Fluid {
	case "", FluidClear, FluidBloody, FluidMeconium, FluidUnknown:
		return nil
	}
	return invalidEvent("fluid must be clear, blood, meconium or unknown")
}

// MedicationData is a medication or device event.
type MedicationData struct {
	Name string `json:"med_name"`
	Rate string `json:"rate,omitempty"`
	Note string `json:"note,omitempty"`
}

func (MedicationData) Kind() EventKind                  { return EventKindMedication }
func (d MedicationData) EventNote() string              { return d.Note }
func (d MedicationData) accept(e Event, v EventVisitor) { v.VisitMedication(e, d) }

func (d MedicationData) Validate() error {
	if NormalizeMedName(d.Name) == "" {
		return NewAppError(ErrCodeValidationMissingField, "med_name is required", nil)
	}
	return nil
}

// VitalsData is a maternal vitals entry.
type VitalsData struct {
	TempC       *float64 `json:"temp_c,omitempty"`
	HeartRate   *int     `json:"hr,omitempty"`
	SystolicBP  *int     `json:"sbp,omitempty"`
	DiastolicBP *int     `json:"dbp,omitempty"`
	Note        string   `json:"note,omitempty"`
}

func (VitalsData) Kind() EventKind                  { return EventKindVitals }
func (d VitalsData) EventNote() string              { return d.Note }
func (d VitalsData) accept(e Event, v EventVisitor) { v.VisitVitals(e, d) }

func (d VitalsData) Validate() error {
	if d.TempC != nil && (*d.TempC < 30 || *d.TempC > 43) {
		return invalidEvent("temp_c must be between 30 and 43")
	}
	if d.HeartRate != nil && (*d.HeartRate < 20 || *d.HeartRate > 220) {
		return invalidEvent("hr must be between 20 and 220")
	}
	if d.SystolicBP != nil && (*d.SystolicBP < 50 || *d.SystolicBP > 250) {
		return invalidEvent("sbp must be between 50 and 250")
	}
	if d.DiastolicBP != nil && (*d.DiastolicBP < 20 || *d.DiastolicBP > 160) {
		return invalidEvent("dbp must be between 20 and 160")
	}
	return nil
}

// FetalData is a fetal heart rate tracing assessment.
type FetalData struct {
	Category        FetalCategory `json:"category,omitempty"`
	RecurrentDecels bool          `json:"recurrent_decels"`
	Note            string        `json:"note,omitempty"`
}

func (FetalData) Kind() EventKind                  { return EventKindFetal }
func (d FetalData) EventNote() string              { return d.Note }
func (d FetalData) accept(e Event, v EventVisitor) { v.VisitFetal(e, d) }

func (d FetalData) Validate() error {
	switch d.Category {
	case FetalCategoryUnknown, FetalCategoryI, FetalCategoryII, FetalCategoryIII:
		return nil
	}
	return invalidEvent("category must be I, II, III or empty")
}

func invalidEvent(msg string) *AppError {
	return NewAppError(ErrCodeValidationInvalidEvent, msg, nil)
}

// DecodeEventData parses a raw JSON payload for the given kind.
// Exams require dilation_cm to be present; every other field is optional.
func DecodeEventData(kind EventKind, raw []byte) (EventData, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	switch kind {
	case EventKindExam:
		var probe struct {
			DilationCm *float64 `json:"dilation_cm"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, decodeErr(kind, err)
		}
		if probe.DilationCm == nil {
			return nil, NewAppError(ErrCodeValidationMissingField, "dilation_cm is required for sve events", nil)
		}
		var d ExamData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, decodeErr(kind, err)
		}
		d.Position = FetalPosition(strings.ToLower(strings.TrimSpace(string(d.Position))))
		return d, nil
	case EventKindRupture:
		var d RuptureData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, decodeErr(kind, err)
		}
		return d, nil
	case EventKindMedication:
		var d MedicationData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, decodeErr(kind, err)
		}
		d.Name = NormalizeMedName(d.Name)
		return d, nil
	case EventKindVitals:
		var d VitalsData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, decodeErr(kind, err)
		}
		return d, nil
	case EventKindFetal:
		var d FetalData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, decodeErr(kind, err)
		}
		return d, nil
	default:
		return nil, NewAppErrorWithDetails(ErrCodeValidationEventKind,
			"unknown event kind", nil,
			map[string]any{"kind": string(kind), "allowed": AllEventKinds})
	}
}

func decodeErr(kind EventKind, err error) *AppError {
	return NewAppError(ErrCodeValidationInvalidEvent, fmt.Sprintf("malformed %s payload", kind), err)
}

// eventJSON is the wire shape of an Event.
type eventJSON struct {
	ID          string          `json:"id"`
	EncounterID string          `json:"encounter_id"`
	Kind        EventKind       `json:"kind"`
	Timestamp   time.Time       `json:"ts"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// MarshalJSON writes the event as {id, encounter_id, kind, ts, data}.
func (e Event) MarshalJSON() ([]byte, error) {
	data := []byte("{}")
	if e.Data != nil {
		b, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		data = b
	}
	out := eventJSON{
		ID:          e.ID,
		EncounterID: e.EncounterID,
		Kind:        e.Kind(),
		Timestamp:   e.Timestamp,
		Data:        data,
	}
	if !e.CreatedAt.IsZero() {
		out.CreatedAt = &e.CreatedAt
	}
	if !e.UpdatedAt.IsZero() {
		out.UpdatedAt = &e.UpdatedAt
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the wire shape and decodes data by kind.
func (e *Event) UnmarshalJSON(b []byte) error {
	var in eventJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	data, err := DecodeEventData(in.Kind, in.Data)
	if err != nil {
		return err
	}
	*e = Event{
		ID:          in.ID,
		EncounterID: in.EncounterID,
		Timestamp:   in.Timestamp,
		Data:        data,
	}
	if in.CreatedAt != nil {
		e.CreatedAt = *in.CreatedAt
	}
	if in.UpdatedAt != nil {
		e.UpdatedAt = *in.UpdatedAt
	}
	return nil
}

// Validate checks the envelope and the variant.
func (e *Event) Validate() error {
	if e.Data == nil {
		return NewAppError(ErrCodeValidationMissingField, "event data is required", nil)
	}
	if e.Timestamp.IsZero() {
		return NewAppError(ErrCodeValidationTimestamp, "ts is required", nil)
	}
	return e.Data.Validate()
}
