package services

import (
	"context"
	"log"
	"time"

	"github.com/lucsky/cuid"
	"github.com/shopspring/decimal"

	"tickethub/internal/auth"
	"tickethub/internal/payment"
	"tickethub/internal/qrsign"
	"tickethub/internal/status"
	"tickethub/internal/store"
	"tickethub/internal/ticketno"
	"tickethub/models"
)

// PurchaseResult is what a successful purchase returns to the caller.
type PurchaseResult struct {
	TicketID     string  `json:"ticket_id"`
	TicketNumber string  `json:"ticket_number"`
	QRCode       string  `json:"qr_code"`
	TotalPrice   float64 `json:"total_price"`
	EventName    string  `json:"event_name"`
	Venue        string  `json:"venue"`
}

// PurchaseService runs the ticket purchase as one atomic unit of work:
// inventory check, duplicate guard, ticket + mirror + audit writes and the
// sold counter increment all commit or abort together.
type PurchaseService struct {
	store          store.PurchaseStore
	codec          *qrsign.Codec
	payments       payment.Provider
	requirePayment bool
	now            func() time.Time
}

func NewPurchaseService(st store.PurchaseStore, codec *qrsign.Codec, payments payment.Provider, requirePayment bool) *PurchaseService {
	return &PurchaseService{
		store:          st,
		codec:          codec,
		payments:       payments,
		requirePayment: requirePayment,
		now:            time.Now,
	}
}

// Purchase issues one ticket for the caller on the given event.
//
// Every precondition is checked inside the transaction so two racing
// purchases of the last ticket cannot both pass the availability read; the
// datastore aborts one of them and the platform retries it, at which point it
// observes the committed state and fails cleanly. A failed attempt leaves no
// partial state. A retried call after a timeout either succeeds once or sees
// its own earlier success as a duplicate, so retries are always safe.
func (s *PurchaseService) Purchase(ctx context.Context, claims *auth.Claims, eventID string) (*PurchaseResult, error) {
	if claims == nil || claims.UserID == "" {
		return nil, status.E(status.Unauthenticated, "authentication required")
	}
	if eventID == "" {
		return nil, status.E(status.InvalidArgument, "eventId is required")
	}

	var result *PurchaseResult

	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		event, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}

		existing, err := tx.FindConfirmedTicket(ctx, eventID, claims.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return status.E(status.FailedPrecondition, "You already have a ticket for this event")
		}

		if event.Available() < 1 {
			return status.E(status.FailedPrecondition, "No tickets available")
		}

		if event.HasStarted(s.now()) {
			return status.E(status.FailedPrecondition, "Event has passed")
		}

		if err := s.checkPayment(ctx, claims.UserID, event); err != nil {
			return err
		}

		ticketID := cuid.New()
		number, err := ticketno.New(s.now())
		if err != nil {
			return status.Wrap(status.Internal, "failed to generate ticket number", err)
		}

		// Signing failure aborts the purchase. An unsigned ticket would be
		// worthless at the gate, so there is no fallback here.
		qrPayload, err := s.codec.Encode(ticketID, event.ID, claims.UserID, number)
		if err != nil {
			return err
		}

		ticket := &models.Ticket{
			ID:           ticketID,
			EventID:      event.ID,
			UserID:       claims.UserID,
			Status:       models.TicketConfirmed,
			QRCode:       qrPayload,
			TicketNumber: number,
			TotalPrice:   event.Price,
			PurchaseDate: s.now(),
		}
		if err := tx.CreateTicket(ctx, ticket); err != nil {
			return err
		}

		event.TicketsSold++
		if err := tx.SaveEvent(ctx, event); err != nil {
			return err
		}

		audit := &models.AuditRecord{
			ID:        cuid.New(),
			Type:      models.AuditTicketPurchase,
			UserID:    claims.UserID,
			EventID:   event.ID,
			TicketID:  ticketID,
			Amount:    event.Price,
			Timestamp: s.now(),
			Status:    models.AuditCompleted,
		}
		if err := tx.CreateAuditRecord(ctx, audit); err != nil {
			return err
		}

		result = &PurchaseResult{
			TicketID:     ticketID,
			TicketNumber: number,
			QRCode:       qrPayload,
			TotalPrice:   event.Price,
			EventName:    event.Name,
			Venue:        event.Venue,
		}
		return nil
	})
	if err != nil {
		if status.CodeOf(err) == status.Internal {
			log.Printf("purchase failed for user %s event %s: %v", claims.UserID, eventID, err)
		}
		return nil, err
	}

	return result, nil
}

// PaymentSessionResult is what opening a payment session returns.
type PaymentSessionResult struct {
	SessionID string  `json:"session_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

// CreatePaymentSession opens a pending payment session for a priced event.
// The buyer completes it through the gateway, which publishes a confirmation;
// Purchase then finds the completed session and lets the ticket through.
func (s *PurchaseService) CreatePaymentSession(ctx context.Context, claims *auth.Claims, eventID string) (*PaymentSessionResult, error) {
	if claims == nil || claims.UserID == "" {
		return nil, status.E(status.Unauthenticated, "authentication required")
	}
	if eventID == "" {
		return nil, status.E(status.InvalidArgument, "eventId is required")
	}
	if s.payments == nil {
		return nil, status.E(status.FailedPrecondition, "Payments are not enabled")
	}

	var event *models.Event
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		var err error
		event, err = tx.GetEvent(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if event.Price <= 0 {
		return nil, status.E(status.FailedPrecondition, "This event does not require payment")
	}
	if event.HasStarted(s.now()) {
		return nil, status.E(status.FailedPrecondition, "Event has passed")
	}
	if event.Available() < 1 {
		return nil, status.E(status.FailedPrecondition, "No tickets available")
	}

	sessionID, err := s.payments.CreateSession(ctx, claims.UserID, event.ID, decimal.NewFromFloat(event.Price))
	if err != nil {
		return nil, err
	}

	return &PaymentSessionResult{
		SessionID: sessionID,
		Amount:    event.Price,
		Status:    string(payment.StatusPending),
	}, nil
}

func (s *PurchaseService) checkPayment(ctx context.Context, userID string, event *models.Event) error {
	if !s.requirePayment || s.payments == nil || event.Price <= 0 {
		return nil
	}

	conf, err := s.payments.Confirm(ctx, userID, event.ID)
	if err != nil {
		return err
	}
	if conf.Status != payment.StatusCompleted {
		return status.E(status.FailedPrecondition, "Payment has not been confirmed")
	}
	if !conf.Amount.Equal(decimal.NewFromFloat(event.Price)) {
		return status.E(status.FailedPrecondition, "Payment amount does not match ticket price")
	}
	return nil
}

// Cancel moves a confirmed ticket to cancelled. Only the purchaser or a site
// admin may cancel. A later purchase for the same event mints a new ticket;
// nothing ever returns to confirmed.
func (s *PurchaseService) Cancel(ctx context.Context, claims *auth.Claims, ticketID string) error {
	if claims == nil || claims.UserID == "" {
		return status.E(status.Unauthenticated, "authentication required")
	}
	if ticketID == "" {
		return status.E(status.InvalidArgument, "ticketId is required")
	}

	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.UserID != claims.UserID && !claims.IsSiteAdmin() {
		return status.E(status.PermissionDenied, "not your ticket")
	}
	if !models.CanTransition(ticket.Status, models.TicketCancelled) {
		return status.Errorf(status.FailedPrecondition, "cannot cancel a %s ticket", ticket.Status)
	}

	now := s.now()
	ticket.Status = models.TicketCancelled
	ticket.CancelledAt = &now
	return s.store.SaveTicket(ctx, ticket)
}
