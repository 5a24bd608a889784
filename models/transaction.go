package models

import (
	"time"
)

const (
	AuditTicketPurchase = "ticket_purchase"

	AuditCompleted = "completed"
)

// AuditRecord is the append-only financial audit trail. Exactly one is
// written per successful purchase, inside the purchase transaction, and it is
// never mutated afterwards.
type AuditRecord struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	TicketID  string    `json:"ticket_id"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}
