package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/config"
	"tickethub/internal/auth"
	"tickethub/internal/qrsign"
	"tickethub/internal/store"
	"tickethub/models"
)

// ScanHandler serves gate scanner devices: provisioning-key exchange for a
// short-lived device token, and QR payload verification. The signature check
// itself needs no datastore access; the ticket lookup only adds the current
// lifecycle status to the response.
type ScanHandler struct {
	cfg   *config.Config
	codec *qrsign.Codec
	store store.PurchaseStore
}

func NewScanHandler(cfg *config.Config, codec *qrsign.Codec, st store.PurchaseStore) *ScanHandler {
	return &ScanHandler{
		cfg:   cfg,
		codec: codec,
		store: st,
	}
}

// Token - exchange a scanner provisioning key for a device token
func (h *ScanHandler) Token(e *core.RequestEvent) error {
	var req struct {
		DeviceID string `json:"deviceId"`
		VenueID  string `json:"venueId"`
		APIKey   string `json:"apiKey"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.DeviceID == "" || req.APIKey == "" {
		return apis.NewBadRequestError("deviceId and apiKey are required", nil)
	}

	if h.cfg.ScannerKeyHash == "" || !qrsign.CheckDeviceKey(h.cfg.ScannerKeyHash, req.APIKey) {
		return apis.NewUnauthorizedError("Invalid scanner key", nil)
	}

	token, err := auth.IssueScannerToken([]byte(h.cfg.ScannerJWTSecret), req.DeviceID, req.VenueID, h.cfg.ScannerTokenTTL)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"token":     token,
		"expiresIn": int(h.cfg.ScannerTokenTTL.Seconds()),
	})
}

// Verify - check a scanned QR payload's signature and ticket status
func (h *ScanHandler) Verify(e *core.RequestEvent) error {
	if _, err := auth.ParseScannerToken([]byte(h.cfg.ScannerJWTSecret), e.Request.Header.Get("Authorization")); err != nil {
		return apiError(err)
	}

	var req struct {
		Payload string `json:"payload"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	payload, err := h.codec.Verify(req.Payload)
	if err != nil {
		return e.JSON(http.StatusOK, map[string]any{
			"valid":  false,
			"reason": "invalid signature",
		})
	}

	resp := map[string]any{
		"valid":        true,
		"ticketId":     payload.TicketID,
		"eventId":      payload.EventID,
		"userId":       payload.UserID,
		"ticketNumber": payload.TicketNumber,
	}

	// Status lookup is advisory; the signature already proved authenticity.
	if ticket, err := h.store.GetTicket(e.Request.Context(), payload.TicketID); err == nil {
		resp["status"] = ticket.Status
		resp["scannable"] = ticket.Status == models.TicketConfirmed
	}

	return e.JSON(http.StatusOK, resp)
}
