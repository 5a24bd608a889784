package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/internal/auth"
	"tickethub/internal/services"
	"tickethub/models"
	"tickethub/monitoring"
)

// MigrationHandler exposes one run endpoint and one read-only status
// endpoint per migration phase. Both require the site admin role; the
// service enforces it again, so the gate holds even if a route is rebound.
type MigrationHandler struct {
	migrations *services.MigrationService
}

func NewMigrationHandler(migrations *services.MigrationService) *MigrationHandler {
	return &MigrationHandler{migrations: migrations}
}

type migrationFunc func(ctx context.Context, claims *auth.Claims) (*models.MigrationReport, error)
type statusFunc func(ctx context.Context, claims *auth.Claims) ([]models.StatusReport, error)

func (h *MigrationHandler) run(phase string, fn migrationFunc) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		claims, err := auth.FromRecord(e.Auth)
		if err != nil {
			return apiError(err)
		}

		report, err := fn(e.Request.Context(), claims)
		if err != nil {
			return apiError(err)
		}
		monitoring.TrackMigration(phase, report.Updated, report.Skipped, report.Created, len(report.Errors))

		resp := map[string]any{
			"success": true,
			"message": "Migration " + phase + " completed",
			"updated": report.Updated,
			"skipped": report.Skipped,
		}
		if report.Created > 0 {
			resp["created"] = report.Created
		}
		if len(report.Errors) > 0 {
			resp["errors"] = report.Errors
		}
		return e.JSON(http.StatusOK, resp)
	}
}

func (h *MigrationHandler) check(fn statusFunc) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		claims, err := auth.FromRecord(e.Auth)
		if err != nil {
			return apiError(err)
		}

		reports, err := fn(e.Request.Context(), claims)
		if err != nil {
			return apiError(err)
		}
		return e.JSON(http.StatusOK, map[string]any{
			"success":     true,
			"collections": reports,
		})
	}
}

func (h *MigrationHandler) requireAuth(next func(e *core.RequestEvent) error) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if e.Auth == nil {
			return apis.NewUnauthorizedError("Unauthorized", nil)
		}
		return next(e)
	}
}

// Per-phase route handlers, wired up in cmd/exec.go.

func (h *MigrationHandler) RunVenues(e *core.RequestEvent) error {
	return h.requireAuth(h.run(services.PhaseVenues, h.migrations.MigrateVenues))(e)
}

func (h *MigrationHandler) VenuesStatus(e *core.RequestEvent) error {
	return h.requireAuth(h.check(h.migrations.CheckVenues))(e)
}

func (h *MigrationHandler) RunEventVenues(e *core.RequestEvent) error {
	return h.requireAuth(h.run(services.PhaseEventVenues, h.migrations.MigrateEventVenueRefs))(e)
}

func (h *MigrationHandler) EventVenuesStatus(e *core.RequestEvent) error {
	return h.requireAuth(h.check(h.migrations.CheckEventVenueRefs))(e)
}

func (h *MigrationHandler) RunBookmarks(e *core.RequestEvent) error {
	return h.requireAuth(h.run(services.PhaseBookmarks, h.migrations.MigrateBookmarks))(e)
}

func (h *MigrationHandler) BookmarksStatus(e *core.RequestEvent) error {
	return h.requireAuth(h.check(h.migrations.CheckBookmarks))(e)
}

func (h *MigrationHandler) RunDefaults(e *core.RequestEvent) error {
	return h.requireAuth(h.run(services.PhaseDefaults, h.migrations.BackfillDefaults))(e)
}

func (h *MigrationHandler) DefaultsStatus(e *core.RequestEvent) error {
	return h.requireAuth(h.check(h.migrations.CheckDefaults))(e)
}

func (h *MigrationHandler) RunEventStatus(e *core.RequestEvent) error {
	return h.requireAuth(h.run(services.PhaseEventStatus, h.migrations.DeriveEventStatus))(e)
}

func (h *MigrationHandler) EventStatusStatus(e *core.RequestEvent) error {
	return h.requireAuth(h.check(h.migrations.CheckEventStatus))(e)
}

func (h *MigrationHandler) RunStats(e *core.RequestEvent) error {
	return h.requireAuth(h.run(services.PhaseEventStats, h.migrations.RebuildEventStats))(e)
}

func (h *MigrationHandler) StatsStatus(e *core.RequestEvent) error {
	return h.requireAuth(h.check(h.migrations.CheckEventStats))(e)
}
