package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/internal/auth"
	"tickethub/internal/services"
	"tickethub/internal/status"
	"tickethub/monitoring"
)

type PurchaseHandler struct {
	purchases *services.PurchaseService
	notifier  *services.Notifier
	stats     *services.StatsCache
}

func NewPurchaseHandler(purchases *services.PurchaseService, notifier *services.Notifier, stats *services.StatsCache) *PurchaseHandler {
	return &PurchaseHandler{
		purchases: purchases,
		notifier:  notifier,
		stats:     stats,
	}
}

// Purchase - buy one ticket for an event
func (h *PurchaseHandler) Purchase(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	claims, err := auth.FromRecord(e.Auth)
	if err != nil {
		return apiError(err)
	}

	var req struct {
		EventID string `json:"eventId"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ctx := e.Request.Context()

	start := time.Now()
	result, err := h.purchases.Purchase(ctx, claims, req.EventID)
	if err != nil {
		monitoring.TrackPurchase(req.EventID, string(status.CodeOf(err)), time.Since(start))
		return apiError(err)
	}
	monitoring.TrackPurchase(req.EventID, "ok", time.Since(start))

	if h.stats != nil {
		h.stats.BumpSold(ctx, req.EventID)
	}
	go h.notifier.TicketPurchased(claims.UserID, result)

	return e.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"ticketId":     result.TicketID,
		"totalPrice":   result.TotalPrice,
		"qrCode":       result.QRCode,
		"ticketNumber": result.TicketNumber,
		"message":      "Ticket purchased successfully",
		"eventName":    result.EventName,
		"venue":        result.Venue,
	})
}

// PaymentSession - open a pending payment session for a priced event
func (h *PurchaseHandler) PaymentSession(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	claims, err := auth.FromRecord(e.Auth)
	if err != nil {
		return apiError(err)
	}

	var req struct {
		EventID string `json:"eventId"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	session, err := h.purchases.CreatePaymentSession(e.Request.Context(), claims, req.EventID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"sessionId": session.SessionID,
		"amount":    session.Amount,
		"status":    session.Status,
	})
}

// Cancel - cancel a confirmed ticket
func (h *PurchaseHandler) Cancel(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	claims, err := auth.FromRecord(e.Auth)
	if err != nil {
		return apiError(err)
	}

	ticketID := e.Request.PathValue("ticketId")
	if err := h.purchases.Cancel(e.Request.Context(), claims, ticketID); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Ticket cancelled",
	})
}
