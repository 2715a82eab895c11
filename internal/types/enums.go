package types

import "strings"

// Parity distinguishes first labors from subsequent ones.
type Parity string

const (
	ParityNullip Parity = "nullip"
	ParityMultip Parity = "multip"
)

// IsValid reports whether p is a known parity.
func (p Parity) IsValid() bool {
	return p == ParityNullip || p == ParityMultip
}

// EncounterStatus is the lifecycle state of an encounter.
type EncounterStatus string

const (
	EncounterOpen      EncounterStatus = "open"
	EncounterDelivered EncounterStatus = "delivered"
	EncounterCesarean  EncounterStatus = "cs"
)

// IsValid reports whether s is a known status.
func (s EncounterStatus) IsValid() bool {
	switch s {
	case EncounterOpen, EncounterDelivered, EncounterCesarean:
		return true
	}
	return false
}

// IsClosed is true once an outcome status has been recorded.
func (s EncounterStatus) IsClosed() bool {
	return s == EncounterDelivered || s == EncounterCesarean
}

// OutcomeMode is the mode of delivery recorded with the outcome.
type OutcomeMode string

const (
	OutcomeVaginal  OutcomeMode = "vaginal"
	OutcomeCesarean OutcomeMode = "cs"
	OutcomeUnknown  OutcomeMode = "unknown"
)

// EventKind tags the variant carried by an Event.
type EventKind string

const (
	EventKindExam       EventKind = "sve"
	EventKindRupture    EventKind = "rom"
	EventKindMedication EventKind = "med"
	EventKindVitals     EventKind = "vitals"
	EventKindFetal      EventKind = "fetal"
)

// AllEventKinds lists every kind the API accepts.
var AllEventKinds = []EventKind{
	EventKindExam,
	EventKindRupture,
	EventKindMedication,
	EventKindVitals,
	EventKindFetal,
}

// Phase is the labor phase derived by the predictor.
type Phase string

const (
	PhaseNoData Phase = "no-data"
	PhaseLatent Phase = "latent"
	PhaseActive Phase = "active"
	PhaseSecond Phase = "second"
)

// FetalPosition is the occiput position recorded on a cervical exam.
type FetalPosition string

const (
	PositionUnknown    FetalPosition = ""
	PositionAnterior   FetalPosition = "oa"
	PositionPosterior  FetalPosition = "op"
	PositionTransverse FetalPosition = "ot"
)

// IsMalposition is true for occiput-posterior and occiput-transverse.
func (p FetalPosition) IsMalposition() bool {
	switch FetalPosition(strings.ToLower(string(p))) {
	case PositionPosterior, PositionTransverse:
		return true
	}
	return false
}

// FluidType describes amniotic fluid at rupture.
type FluidType string

const (
	FluidClear    FluidType = "clear"
	FluidBloody   FluidType = "blood"
	FluidMeconium FluidType = "meconium"
	FluidUnknown  FluidType = "unknown"
)

// FetalCategory is the three-tier fetal heart rate interpretation.
type FetalCategory string

const (
	FetalCategoryUnknown FetalCategory = ""
	FetalCategoryI       FetalCategory = "I"
	FetalCategoryII      FetalCategory = "II"
	FetalCategoryIII     FetalCategory = "III"
)

// Medication names the predictor recognizes. Other names are accepted and
// stored but carry no adjustment.
const (
	MedOxytocin     = "oxytocin"
	MedEpidural     = "epidural"
	MedMiso         = "miso"
	MedMisoprostol  = "misoprostol"
	MedCervidil     = "cervidil"
	MedDinoprostone = "dinoprostone"
	MedFoley        = "foley"
	MedCook         = "cook"
	MedMagnesium    = "magnesium"
	MedAntibiotics  = "antibiotics"
)

// inductionAgents are cervical-ripening agents and mechanical devices.
var inductionAgents = map[string]struct{}{
	MedMiso:         {},
	MedMisoprostol:  {},
	MedCervidil:     {},
	MedDinoprostone: {},
	MedFoley:        {},
	MedCook:         {},
}

// NormalizeMedName lowercases and trims a medication name for matching.
func NormalizeMedName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsInductionAgent reports whether a medication name is a ripening agent or
// mechanical induction device.
func IsInductionAgent(name string) bool {
	_, ok := inductionAgents[NormalizeMedName(name)]
	return ok
}

// ImportMode selects how an import bundle is applied.
type ImportMode string

const (
	ImportMerge   ImportMode = "merge"
	ImportReplace ImportMode = "replace"
)
