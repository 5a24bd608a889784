package models

import (
	"time"
)

// Ticket lifecycle statuses. A ticket is never physically deleted; "deleted"
// is a terminal status like the others.
const (
	TicketConfirmed = "confirmed"
	TicketUsed      = "used"
	TicketCancelled = "cancelled"
	TicketRefunded  = "refunded"
	TicketDeleted   = "deleted"
)

type Ticket struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	UserID       string     `json:"user_id"`
	Status       string     `json:"status"`
	QRCode       string     `json:"qr_code"`
	TicketNumber string     `json:"ticket_number"`
	TotalPrice   float64    `json:"total_price"`
	PurchaseDate time.Time  `json:"purchase_date"`
	ScannedAt    *time.Time `json:"scanned_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`

	DefaultsBackfilled bool `json:"defaults_backfilled"`
}

// ticketTransitions encodes the status machine:
// confirmed -> used | cancelled, confirmed|used -> refunded, any -> deleted.
// Nothing ever goes back to confirmed; a re-purchase mints a new ticket.
var ticketTransitions = map[string][]string{
	TicketConfirmed: {TicketUsed, TicketCancelled, TicketRefunded, TicketDeleted},
	TicketUsed:      {TicketRefunded, TicketDeleted},
	TicketCancelled: {TicketDeleted},
	TicketRefunded:  {TicketDeleted},
	TicketDeleted:   {},
}

// CanTransition reports whether a ticket may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range ticketTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Bookmark lives in the flat root-level collection. Key is the deterministic
// composite id derived from (user, event) so the relocation migration can be
// re-run safely.
type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BookmarkKey derives the destination id for a relocated bookmark.
func BookmarkKey(userID, eventID string) string {
	return userID + "_" + eventID
}
