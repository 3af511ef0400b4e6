package domain

import "time"

type AuditAction string

const (
	AuditActionCreated          AuditAction = "CREATED"
	AuditActionStatusChanged    AuditAction = "STATUS_CHANGED"
	AuditActionPaymentReceived  AuditAction = "PAYMENT_RECEIVED"
	AuditActionPaymentCorrected AuditAction = "PAYMENT_CORRECTED"
	AuditActionExtended         AuditAction = "EXTENDED"
	AuditActionCancelled        AuditAction = "CANCELLED"
)

type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from,omitempty"`
	To    string `json:"to"`
}

// AuditEntry is append-only. Nothing updates or deletes it after insert.
type AuditEntry struct {
	ID            string        `json:"id"`
	ReservationID int64         `json:"reservation_id"`
	Action        AuditAction   `json:"action"`
	Changes       []FieldChange `json:"changes"`
	ActorID       *string       `json:"actor_id,omitempty"`
	Note          string        `json:"note,omitempty"`
	CreatedOn     time.Time     `json:"created_on"`
}
