package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethub/internal/auth"
	"tickethub/internal/payment"
	"tickethub/internal/qrsign"
	"tickethub/internal/status"
	"tickethub/internal/store"
	"tickethub/models"
)

func userClaims(id string) *auth.Claims {
	return &auth.Claims{UserID: id, Role: auth.Role{Kind: auth.RoleUser}}
}

func testCodec(t *testing.T) *qrsign.Codec {
	t.Helper()
	codec, err := qrsign.NewCodec("test-secret")
	require.NoError(t, err)
	return codec
}

func upcomingEvent(id string, capacity int) *models.Event {
	return &models.Event{
		ID:         id,
		Name:       "Summer Concert",
		Venue:      "The Grand Hall",
		StartTime:  time.Now().Add(24 * time.Hour),
		EndTime:    time.Now().Add(28 * time.Hour),
		MaxTickets: capacity,
		Price:      49.99,
		Status:     models.EventActive,
	}
}

func TestPurchaseSuccess(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", 100))
	codec := testCodec(t)
	svc := NewPurchaseService(mem, codec, nil, false)

	result, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.TicketID)
	assert.Regexp(t, `^TKT-\d{6}-\d{2}-\d{2}$`, result.TicketNumber)
	assert.Equal(t, 49.99, result.TotalPrice)
	assert.Equal(t, "Summer Concert", result.EventName)
	assert.Equal(t, "The Grand Hall", result.Venue)

	// The QR payload verifies against the issuing secret and names this
	// exact ticket.
	payload, err := codec.Verify(result.QRCode)
	require.NoError(t, err)
	assert.Equal(t, result.TicketID, payload.TicketID)
	assert.Equal(t, "evt1", payload.EventID)
	assert.Equal(t, "usr1", payload.UserID)

	// Root record, per-purchaser mirror, counter and audit all landed.
	ticket, err := mem.GetTicket(context.Background(), result.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketConfirmed, ticket.Status)
	assert.Equal(t, "usr1", ticket.UserID)

	mirror := mem.MirrorTicket(result.TicketID)
	require.NotNil(t, mirror)
	assert.Equal(t, ticket.QRCode, mirror.QRCode)

	events, err := mem.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].TicketsSold)

	audits := mem.AuditRecords()
	require.Len(t, audits, 1)
	assert.Equal(t, models.AuditTicketPurchase, audits[0].Type)
	assert.Equal(t, models.AuditCompleted, audits[0].Status)
	assert.Equal(t, result.TicketID, audits[0].TicketID)
	assert.Equal(t, 49.99, audits[0].Amount)
}

func TestPurchaseDuplicateRejected(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", 100))
	svc := NewPurchaseService(mem, testCodec(t), nil, false)

	_, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)

	_, err = svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.Error(t, err)
	assert.Equal(t, status.FailedPrecondition, status.CodeOf(err))
	assert.Equal(t, "You already have a ticket for this event", status.MessageOf(err))

	// The failed attempt changed nothing.
	events, err := mem.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, events[0].TicketsSold)
	assert.Len(t, mem.AuditRecords(), 1)
}

func TestPurchaseSoldOut(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", 1))
	svc := NewPurchaseService(mem, testCodec(t), nil, false)

	_, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)

	_, err = svc.Purchase(context.Background(), userClaims("usr2"), "evt1")
	require.Error(t, err)
	assert.Equal(t, "No tickets available", status.MessageOf(err))

	// Sold count never exceeds capacity and the losing caller left no
	// partial records behind.
	events, err := mem.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, events[0].TicketsSold)

	tickets, err := mem.ListTickets(context.Background())
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
	assert.Len(t, mem.AuditRecords(), 1)
}

func TestPurchaseEventPassed(t *testing.T) {
	mem := store.NewMemory()
	event := upcomingEvent("evt1", 100)
	event.StartTime = time.Now().Add(-time.Hour)
	mem.SeedEvent(event)
	svc := NewPurchaseService(mem, testCodec(t), nil, false)

	_, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.Error(t, err)
	assert.Equal(t, "Event has passed", status.MessageOf(err))
}

func TestPurchaseEventNotFound(t *testing.T) {
	mem := store.NewMemory()
	svc := NewPurchaseService(mem, testCodec(t), nil, false)

	_, err := svc.Purchase(context.Background(), userClaims("usr1"), "missing")
	require.Error(t, err)
	assert.Equal(t, status.NotFound, status.CodeOf(err))
}

func TestPurchaseValidation(t *testing.T) {
	svc := NewPurchaseService(store.NewMemory(), testCodec(t), nil, false)

	_, err := svc.Purchase(context.Background(), nil, "evt1")
	assert.Equal(t, status.Unauthenticated, status.CodeOf(err))

	_, err = svc.Purchase(context.Background(), userClaims(""), "evt1")
	assert.Equal(t, status.Unauthenticated, status.CodeOf(err))

	_, err = svc.Purchase(context.Background(), userClaims("usr1"), "")
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestPurchaseConcurrentOversellGuard(t *testing.T) {
	const capacity = 5
	const buyers = 40

	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", capacity))
	svc := NewPurchaseService(mem, testCodec(t), nil, false)

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Purchase(context.Background(), userClaims(fmt.Sprintf("buyer-%d", i)), "evt1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, "No tickets available", status.MessageOf(err))
	}
	assert.Equal(t, capacity, succeeded)

	events, err := mem.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, capacity, events[0].TicketsSold)

	tickets, err := mem.ListTickets(context.Background())
	require.NoError(t, err)
	assert.Len(t, tickets, capacity)
	assert.Len(t, mem.AuditRecords(), capacity)
}

type fakeProvider struct {
	conf *payment.Confirmation
	err  error

	sessionUser   string
	sessionEvent  string
	sessionAmount decimal.Decimal
}

func (f *fakeProvider) CreateSession(ctx context.Context, userID, eventID string, amount decimal.Decimal) (string, error) {
	f.sessionUser = userID
	f.sessionEvent = eventID
	f.sessionAmount = amount
	return "session-1", nil
}

func (f *fakeProvider) Confirm(ctx context.Context, userID, eventID string) (*payment.Confirmation, error) {
	return f.conf, f.err
}

func TestCreatePaymentSession(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", 100))

	provider := &fakeProvider{}
	svc := NewPurchaseService(mem, testCodec(t), provider, true)

	session, err := svc.CreatePaymentSession(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", session.SessionID)
	assert.Equal(t, 49.99, session.Amount)
	assert.Equal(t, string(payment.StatusPending), session.Status)

	// The provider received the caller's identity and the event price.
	assert.Equal(t, "usr1", provider.sessionUser)
	assert.Equal(t, "evt1", provider.sessionEvent)
	assert.True(t, provider.sessionAmount.Equal(decimal.NewFromFloat(49.99)))
}

func TestCreatePaymentSessionRejectsFreeEvents(t *testing.T) {
	mem := store.NewMemory()
	event := upcomingEvent("evt1", 100)
	event.Price = 0
	mem.SeedEvent(event)
	svc := NewPurchaseService(mem, testCodec(t), &fakeProvider{}, true)

	_, err := svc.CreatePaymentSession(context.Background(), userClaims("usr1"), "evt1")
	require.Error(t, err)
	assert.Equal(t, "This event does not require payment", status.MessageOf(err))
}

func TestCreatePaymentSessionGuards(t *testing.T) {
	mem := store.NewMemory()
	passed := upcomingEvent("evt1", 100)
	passed.StartTime = time.Now().Add(-time.Hour)
	mem.SeedEvent(passed)
	mem.SeedEvent(upcomingEvent("evt2", 0))
	svc := NewPurchaseService(mem, testCodec(t), &fakeProvider{}, true)

	_, err := svc.CreatePaymentSession(context.Background(), userClaims("usr1"), "evt1")
	assert.Equal(t, "Event has passed", status.MessageOf(err))

	_, err = svc.CreatePaymentSession(context.Background(), userClaims("usr1"), "evt2")
	assert.Equal(t, "No tickets available", status.MessageOf(err))

	_, err = svc.CreatePaymentSession(context.Background(), userClaims("usr1"), "missing")
	assert.Equal(t, status.NotFound, status.CodeOf(err))

	_, err = svc.CreatePaymentSession(context.Background(), nil, "evt1")
	assert.Equal(t, status.Unauthenticated, status.CodeOf(err))

	noProvider := NewPurchaseService(mem, testCodec(t), nil, false)
	_, err = noProvider.CreatePaymentSession(context.Background(), userClaims("usr1"), "evt1")
	assert.Equal(t, "Payments are not enabled", status.MessageOf(err))
}

func TestPurchaseAfterSessionConfirmed(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", 100))

	provider := &fakeProvider{}
	svc := NewPurchaseService(mem, testCodec(t), provider, true)

	session, err := svc.CreatePaymentSession(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)

	// Until the gateway confirms, the purchase stays blocked.
	provider.conf = &payment.Confirmation{
		SessionID: session.SessionID,
		Status:    payment.StatusPending,
		Amount:    provider.sessionAmount,
	}
	_, err = svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.Error(t, err)
	assert.Equal(t, "Payment has not been confirmed", status.MessageOf(err))

	provider.conf.Status = payment.StatusCompleted
	result, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.TicketID)
}

func TestPurchaseRequiresConfirmedPayment(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", 100))

	provider := &fakeProvider{conf: &payment.Confirmation{
		Status: payment.StatusPending,
		Amount: decimal.NewFromFloat(49.99),
	}}
	svc := NewPurchaseService(mem, testCodec(t), provider, true)

	_, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.Error(t, err)
	assert.Equal(t, "Payment has not been confirmed", status.MessageOf(err))

	provider.conf.Status = payment.StatusCompleted
	_, err = svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)
}

func TestPurchaseRejectsPaymentAmountMismatch(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", 100))

	provider := &fakeProvider{conf: &payment.Confirmation{
		Status: payment.StatusCompleted,
		Amount: decimal.NewFromFloat(10),
	}}
	svc := NewPurchaseService(mem, testCodec(t), provider, true)

	_, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.Error(t, err)
	assert.Equal(t, "Payment amount does not match ticket price", status.MessageOf(err))
}

func TestPurchaseSkipsPaymentForFreeEvents(t *testing.T) {
	mem := store.NewMemory()
	event := upcomingEvent("evt1", 100)
	event.Price = 0
	mem.SeedEvent(event)

	provider := &fakeProvider{err: status.E(status.Internal, "gateway down")}
	svc := NewPurchaseService(mem, testCodec(t), provider, true)

	_, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)
}

func TestCancelByOwner(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", 100))
	svc := NewPurchaseService(mem, testCodec(t), nil, false)

	result, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), userClaims("usr1"), result.TicketID))

	ticket, err := mem.GetTicket(context.Background(), result.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketCancelled, ticket.Status)
	require.NotNil(t, ticket.CancelledAt)

	// Cancelling never releases the sold counter.
	events, err := mem.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, events[0].TicketsSold)
}

func TestCancelDeniedForOtherUsers(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", 100))
	svc := NewPurchaseService(mem, testCodec(t), nil, false)

	result, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), userClaims("usr2"), result.TicketID)
	assert.Equal(t, status.PermissionDenied, status.CodeOf(err))

	// A site admin may cancel on the purchaser's behalf.
	admin := &auth.Claims{UserID: "admin1", Role: auth.Role{Kind: auth.RoleSiteAdmin}}
	require.NoError(t, svc.Cancel(context.Background(), admin, result.TicketID))
}

func TestCancelRejectsTerminalStatuses(t *testing.T) {
	mem := store.NewMemory()
	now := time.Now()
	mem.SeedTicket(&models.Ticket{
		ID:           "tkt1",
		EventID:      "evt1",
		UserID:       "usr1",
		Status:       models.TicketUsed,
		PurchaseDate: now,
	})
	svc := NewPurchaseService(mem, testCodec(t), nil, false)

	err := svc.Cancel(context.Background(), userClaims("usr1"), "tkt1")
	require.Error(t, err)
	assert.Equal(t, status.FailedPrecondition, status.CodeOf(err))
}

func TestRepurchaseAfterCancel(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedEvent(upcomingEvent("evt1", 2))
	svc := NewPurchaseService(mem, testCodec(t), nil, false)

	first, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(context.Background(), userClaims("usr1"), first.TicketID))

	// The cancelled ticket no longer counts as a duplicate; a new purchase
	// mints a fresh ticket rather than reviving the old one.
	second, err := svc.Purchase(context.Background(), userClaims("usr1"), "evt1")
	require.NoError(t, err)
	assert.NotEqual(t, first.TicketID, second.TicketID)

	old, err := mem.GetTicket(context.Background(), first.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketCancelled, old.Status)

	events, err := mem.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, events[0].TicketsSold)
}
