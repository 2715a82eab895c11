package types

import "time"

// EventTypeEncounterClosed is the message type published when an encounter
// receives a delivered or cs outcome.
const EventTypeEncounterClosed = "encounter.closed"

// EncounterClosedMessage is the SQS payload consumed by the archiver.
type EncounterClosedMessage struct {
	Type        string          `json:"type"`
	EncounterID string          `json:"encounter_id"`
	Status      EncounterStatus `json:"status"`
	OutcomeAt   *time.Time      `json:"outcome_at,omitempty"`
	ClosedAt    time.Time       `json:"closed_at"`

	// RequestID links the archive run back to the API request that closed
	// the encounter.
	RequestID string `json:"request_id,omitempty"`
}
