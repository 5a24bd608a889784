package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"tickethub/internal/auth"
	"tickethub/internal/status"
	"tickethub/internal/store"
	"tickethub/models"
)

// Migration phase names, used in routes, metrics and logs.
const (
	PhaseVenues      = "venues"
	PhaseEventVenues = "event-venues"
	PhaseBookmarks   = "bookmarks"
	PhaseDefaults    = "defaults"
	PhaseEventStatus = "event-status"
	PhaseEventStats  = "stats"
)

// defaultEventDuration is backfilled onto events that predate the endTime
// field. Applied at most once per record, guarded by the phase marker.
const defaultEventDuration = 4 * time.Hour

// MigrationService is the family of idempotent, admin-gated batch jobs that
// move stored records across schema phases. Every phase skips records that
// already carry its marker, writes in bounded batches and reports partial
// progress instead of aborting, so any phase can be re-run after an
// interruption.
type MigrationService struct {
	store     store.MigrationStore
	stats     *StatsCache
	batchSize int
	now       func() time.Time
}

func NewMigrationService(st store.MigrationStore, stats *StatsCache, batchSize int) *MigrationService {
	if batchSize < 1 {
		batchSize = 400
	}
	return &MigrationService{
		store:     st,
		stats:     stats,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// gate rejects anyone below the highest administrative tier.
func (s *MigrationService) gate(claims *auth.Claims) error {
	if claims == nil {
		return status.E(status.Unauthenticated, "authentication required")
	}
	if !claims.IsSiteAdmin() {
		return status.E(status.PermissionDenied, "site admin role required")
	}
	return nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// VenueSlug derives the normalized venue identifier from a free-text venue
// name: lowercased, non-alphanumeric runs collapsed to a single underscore,
// trimmed. "The Grand Hall" and "the grand hall!" both map to
// "the_grand_hall".
func VenueSlug(name string) string {
	slug := nonAlnum.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(slug, "_")
}

// MigrateVenues creates one venue record per distinct slug derived from the
// free-text venue names on events, aggregating event membership. Existing
// venues are left untouched, which is what makes the phase re-runnable.
func (s *MigrationService) MigrateVenues(ctx context.Context, claims *auth.Claims) (*models.MigrationReport, error) {
	if err := s.gate(claims); err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListVenues(ctx)
	if err != nil {
		return nil, err
	}
	existingSlugs := make(map[string]bool, len(existing))
	for _, v := range existing {
		existingSlugs[v.ID] = true
	}

	report := &models.MigrationReport{}

	grouped := map[string]*models.Venue{}
	for _, e := range events {
		if e.Venue == "" {
			report.AddError(e.ID, "event has no venue name")
			continue
		}
		slug := VenueSlug(e.Venue)
		if slug == "" {
			report.AddError(e.ID, "venue name has no usable characters")
			continue
		}
		v, ok := grouped[slug]
		if !ok {
			v = &models.Venue{ID: slug, Name: e.Venue}
			grouped[slug] = v
		}
		v.EventIDs = append(v.EventIDs, e.ID)
		v.EventCount = len(v.EventIDs)
	}

	var toCreate []*models.Venue
	for slug, v := range grouped {
		if existingSlugs[slug] {
			report.Skipped++
			continue
		}
		toCreate = append(toCreate, v)
	}
	sort.Slice(toCreate, func(i, j int) bool { return toCreate[i].ID < toCreate[j].ID })

	for _, batch := range batches(toCreate, s.batchSize) {
		if err := s.store.SaveVenues(ctx, batch); err != nil {
			s.reportBatchFailure(report, venueIDs(batch), err)
			continue
		}
		report.Created += len(batch)
	}

	return report, nil
}

// MigrateEventVenueRefs backfills the venueId foreign key on events by
// matching their free-text venue name against migrated venues. Events whose
// name matches no venue are per-item errors, never fatal.
func (s *MigrationService) MigrateEventVenueRefs(ctx context.Context, claims *auth.Claims) (*models.MigrationReport, error) {
	if err := s.gate(claims); err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	venues, err := s.store.ListVenues(ctx)
	if err != nil {
		return nil, err
	}
	venueSlugs := make(map[string]bool, len(venues))
	for _, v := range venues {
		venueSlugs[v.ID] = true
	}

	report := &models.MigrationReport{}

	var changed []*models.Event
	for _, e := range events {
		if e.VenueRefMigrated {
			report.Skipped++
			continue
		}
		slug := VenueSlug(e.Venue)
		if slug == "" || !venueSlugs[slug] {
			report.AddError(e.ID, fmt.Sprintf("no venue record for %q", e.Venue))
			continue
		}
		e.VenueID = slug
		e.VenueRefMigrated = true
		changed = append(changed, e)
	}

	for _, batch := range batches(changed, s.batchSize) {
		if err := s.store.SaveEvents(ctx, batch); err != nil {
			s.reportBatchFailure(report, eventIDs(batch), err)
			continue
		}
		report.Updated += len(batch)
	}

	return report, nil
}

// MigrateBookmarks relocates the per-user nested bookmarks into the flat
// root-level collection under a deterministic (user, event) composite key.
// A record already present at the destination is skipped, so the phase is
// safe to re-run mid-way.
func (s *MigrationService) MigrateBookmarks(ctx context.Context, claims *auth.Claims) (*models.MigrationReport, error) {
	if err := s.gate(claims); err != nil {
		return nil, err
	}

	legacy, err := s.store.ListLegacyBookmarks(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.MigrationReport{}

	var toCreate []*models.Bookmark
	for _, b := range legacy {
		if b.UserID == "" || b.EventID == "" {
			report.AddError(b.ID, "legacy bookmark missing user or event")
			continue
		}
		key := models.BookmarkKey(b.UserID, b.EventID)
		exists, err := s.store.HasBookmark(ctx, key)
		if err != nil {
			report.AddError(b.ID, err.Error())
			continue
		}
		if exists {
			report.Skipped++
			continue
		}
		toCreate = append(toCreate, &models.Bookmark{
			ID:        key,
			UserID:    b.UserID,
			EventID:   b.EventID,
			CreatedAt: b.CreatedAt,
		})
	}

	for _, batch := range batches(toCreate, s.batchSize) {
		if err := s.store.SaveBookmarks(ctx, batch); err != nil {
			s.reportBatchFailure(report, bookmarkIDs(batch), err)
			continue
		}
		report.Created += len(batch)
	}

	return report, nil
}

// BackfillDefaults fills new optional fields with defaults only where they
// are absent, across events, tickets and venues. Each field is checked on its
// own; a record with endTime set keeps it even while other fields on the same
// record are backfilled. The phase marker guarantees the endTime offset is
// never applied twice.
func (s *MigrationService) BackfillDefaults(ctx context.Context, claims *auth.Claims) (*models.MigrationReport, error) {
	if err := s.gate(claims); err != nil {
		return nil, err
	}

	report := &models.MigrationReport{}

	eventsReport, err := s.backfillEventDefaults(ctx)
	if err != nil {
		return nil, err
	}
	report.Merge(*eventsReport)

	ticketsReport, err := s.backfillTicketDefaults(ctx)
	if err != nil {
		return nil, err
	}
	report.Merge(*ticketsReport)

	venuesReport, err := s.backfillVenueDefaults(ctx)
	if err != nil {
		return nil, err
	}
	report.Merge(*venuesReport)

	return report, nil
}

func (s *MigrationService) backfillEventDefaults(ctx context.Context) (*models.MigrationReport, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.MigrationReport{}

	var changed []*models.Event
	for _, e := range events {
		if e.DefaultsBackfilled {
			report.Skipped++
			continue
		}
		if e.EndTime.IsZero() && !e.StartTime.IsZero() {
			e.EndTime = e.StartTime.Add(defaultEventDuration)
		}
		if e.Price < 0 {
			e.Price = 0
		}
		e.DefaultsBackfilled = true
		changed = append(changed, e)
	}
	for _, batch := range batches(changed, s.batchSize) {
		if err := s.store.SaveEvents(ctx, batch); err != nil {
			s.reportBatchFailure(report, eventIDs(batch), err)
			continue
		}
		report.Updated += len(batch)
	}

	return report, nil
}

func (s *MigrationService) backfillTicketDefaults(ctx context.Context) (*models.MigrationReport, error) {
	tickets, err := s.store.ListTickets(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.MigrationReport{}

	var changed []*models.Ticket
	for _, t := range tickets {
		if t.DefaultsBackfilled {
			report.Skipped++
			continue
		}
		if t.Status == "" {
			t.Status = models.TicketConfirmed
		}
		t.DefaultsBackfilled = true
		changed = append(changed, t)
	}
	for _, batch := range batches(changed, s.batchSize) {
		if err := s.store.SaveTickets(ctx, batch); err != nil {
			s.reportBatchFailure(report, ticketIDs(batch), err)
			continue
		}
		report.Updated += len(batch)
	}

	return report, nil
}

// backfillVenueDefaults derives eventCount from the membership list where it
// was never set. The non-zero count is its own guard; no marker field needed.
func (s *MigrationService) backfillVenueDefaults(ctx context.Context) (*models.MigrationReport, error) {
	venues, err := s.store.ListVenues(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.MigrationReport{}

	var changed []*models.Venue
	for _, v := range venues {
		if v.EventCount > 0 || len(v.EventIDs) == 0 {
			report.Skipped++
			continue
		}
		v.EventCount = len(v.EventIDs)
		changed = append(changed, v)
	}
	for _, batch := range batches(changed, s.batchSize) {
		if err := s.store.SaveVenues(ctx, batch); err != nil {
			s.reportBatchFailure(report, venueIDs(batch), err)
			continue
		}
		report.Updated += len(batch)
	}

	return report, nil
}

// DeriveEventStatus computes past/soldout/active for events that have no
// explicit status yet. An already-set status is never overwritten.
func (s *MigrationService) DeriveEventStatus(ctx context.Context, claims *auth.Claims) (*models.MigrationReport, error) {
	if err := s.gate(claims); err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.MigrationReport{}
	now := s.now()

	var changed []*models.Event
	for _, e := range events {
		if e.Status != "" {
			report.Skipped++
			continue
		}
		switch {
		case e.HasStarted(now):
			e.Status = models.EventPast
		case e.Available() < 1:
			e.Status = models.EventSoldOut
		default:
			e.Status = models.EventActive
		}
		changed = append(changed, e)
	}

	for _, batch := range batches(changed, s.batchSize) {
		if err := s.store.SaveEvents(ctx, batch); err != nil {
			s.reportBatchFailure(report, eventIDs(batch), err)
			continue
		}
		report.Updated += len(batch)
	}

	return report, nil
}

// RebuildEventStats recomputes the per-event aggregate from scratch on every
// run. It is the one phase without a marker: full recompute over the current
// tickets is the idempotency story.
func (s *MigrationService) RebuildEventStats(ctx context.Context, claims *auth.Claims) (*models.MigrationReport, error) {
	if err := s.gate(claims); err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	tickets, err := s.store.ListTickets(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	byEvent := map[string]*models.EventStats{}
	for _, e := range events {
		byEvent[e.ID] = &models.EventStats{
			EventID:     e.ID,
			TicketsSold: e.TicketsSold,
			ComputedAt:  now,
		}
	}
	for _, t := range tickets {
		st, ok := byEvent[t.EventID]
		if !ok {
			continue
		}
		switch t.Status {
		case models.TicketConfirmed:
			st.Confirmed++
			st.Revenue += t.TotalPrice
		case models.TicketUsed:
			st.Used++
			st.Revenue += t.TotalPrice
		case models.TicketCancelled:
			st.Cancelled++
		case models.TicketRefunded:
			st.Refunded++
		}
		if !t.PurchaseDate.Before(today) {
			st.TodaySales++
		}
	}

	report := &models.MigrationReport{}

	all := make([]*models.EventStats, 0, len(byEvent))
	for _, st := range byEvent {
		all = append(all, st)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EventID < all[j].EventID })

	for _, batch := range batches(all, s.batchSize) {
		if err := s.store.SaveEventStats(ctx, batch); err != nil {
			s.reportBatchFailure(report, statsIDs(batch), err)
			continue
		}
		report.Updated += len(batch)

		if s.stats != nil {
			for _, st := range batch {
				if err := s.stats.Set(ctx, st); err != nil {
					log.Printf("stats cache write failed for event %s: %v", st.EventID, err)
				}
			}
		}
	}

	return report, nil
}

func (s *MigrationService) reportBatchFailure(report *models.MigrationReport, ids []string, err error) {
	for _, id := range ids {
		report.AddError(id, err.Error())
	}
}

func venueIDs(batch []*models.Venue) []string {
	ids := make([]string, len(batch))
	for i, v := range batch {
		ids[i] = v.ID
	}
	return ids
}

func eventIDs(batch []*models.Event) []string {
	ids := make([]string, len(batch))
	for i, e := range batch {
		ids[i] = e.ID
	}
	return ids
}

func ticketIDs(batch []*models.Ticket) []string {
	ids := make([]string, len(batch))
	for i, t := range batch {
		ids[i] = t.ID
	}
	return ids
}

func bookmarkIDs(batch []*models.Bookmark) []string {
	ids := make([]string, len(batch))
	for i, b := range batch {
		ids[i] = b.ID
	}
	return ids
}

func statsIDs(batch []*models.EventStats) []string {
	ids := make([]string, len(batch))
	for i, st := range batch {
		ids[i] = st.EventID
	}
	return ids
}
