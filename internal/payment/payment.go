// Package payment holds the payment-confirmation contract the purchase path
// depends on. The gateway itself is an external collaborator: the core only
// ever asks "is the payment for this (user, event) confirmed, and for how
// much".
package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Confirmation is what a provider reports for a payment session.
type Confirmation struct {
	SessionID   string          `json:"session_id"`
	UserID      string          `json:"user_id"`
	EventID     string          `json:"event_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      Status          `json:"status"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

// Provider is the contract against the payment gateway.
type Provider interface {
	// CreateSession registers a pending payment for (user, event).
	CreateSession(ctx context.Context, userID, eventID string, amount decimal.Decimal) (string, error)

	// Confirm returns the latest session for (user, event). A missing
	// session is an error; a found-but-unconfirmed session is returned with
	// its current status so the caller can decide.
	Confirm(ctx context.Context, userID, eventID string) (*Confirmation, error)
}
