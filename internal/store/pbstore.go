package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/internal/status"
	"tickethub/models"
)

// Collection names. Tickets are written twice: the root collection plus the
// per-purchaser mirror, always inside the same transaction.
const (
	CollectionEvents          = "events"
	CollectionTickets         = "tickets"
	CollectionUserTickets     = "user_tickets"
	CollectionTransactions    = "transactions"
	CollectionVenues          = "venues"
	CollectionLegacyBookmarks = "user_bookmarks"
	CollectionBookmarks       = "bookmarks"
	CollectionEventStats      = "event_stats"
)

// PocketBase adapts a core.App to the Store contracts.
type PocketBase struct {
	app core.App
}

func NewPocketBase(app core.App) *PocketBase {
	return &PocketBase{app: app}
}

func (s *PocketBase) RunInTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(&PocketBase{app: txApp})
	})
}

func (s *PocketBase) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	record, err := s.app.FindRecordById(CollectionEvents, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.E(status.NotFound, "event not found")
		}
		return nil, status.Wrap(status.Internal, "failed to load event", err)
	}
	return eventFromRecord(record), nil
}

func (s *PocketBase) FindConfirmedTicket(ctx context.Context, eventID, userID string) (*models.Ticket, error) {
	record, err := s.app.FindFirstRecordByFilter(
		CollectionTickets,
		"eventId = {:eventId} && userId = {:userId} && status = 'confirmed'",
		dbx.Params{"eventId": eventID, "userId": userID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, status.Wrap(status.Internal, "failed to query tickets", err)
	}
	return ticketFromRecord(record), nil
}

func (s *PocketBase) CreateTicket(ctx context.Context, t *models.Ticket) error {
	if err := s.saveTicketTo(CollectionTickets, t); err != nil {
		return err
	}
	// Mirror copy, identical payload, purchaser-scoped collection.
	return s.saveTicketTo(CollectionUserTickets, t)
}

func (s *PocketBase) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById(CollectionTickets, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.E(status.NotFound, "ticket not found")
		}
		return nil, status.Wrap(status.Internal, "failed to load ticket", err)
	}
	return ticketFromRecord(record), nil
}

// SaveTicket updates both copies of an existing ticket in one transaction so
// a status transition can never land on only one of them.
func (s *PocketBase) SaveTicket(ctx context.Context, t *models.Ticket) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		tx := &PocketBase{app: txApp}
		if err := tx.saveTicketTo(CollectionTickets, t); err != nil {
			return err
		}
		return tx.saveTicketTo(CollectionUserTickets, t)
	})
}

func (s *PocketBase) saveTicketTo(collection string, t *models.Ticket) error {
	record, err := s.findOrNewRecord(collection, t.ID)
	if err != nil {
		return err
	}
	record.Set("id", t.ID)
	record.Set("eventId", t.EventID)
	record.Set("userId", t.UserID)
	record.Set("status", t.Status)
	record.Set("qrCode", t.QRCode)
	record.Set("ticketNumber", t.TicketNumber)
	record.Set("totalPrice", t.TotalPrice)
	record.Set("purchaseDate", t.PurchaseDate)
	record.Set("defaultsBackfilled", t.DefaultsBackfilled)
	setOptionalTime(record, "scannedAt", t.ScannedAt)
	setOptionalTime(record, "cancelledAt", t.CancelledAt)
	setOptionalTime(record, "refundedAt", t.RefundedAt)

	if err := s.app.Save(record); err != nil {
		return status.Wrap(status.Internal, "failed to save ticket", err)
	}
	return nil
}

func (s *PocketBase) SaveEvent(ctx context.Context, e *models.Event) error {
	record, err := s.findOrNewRecord(CollectionEvents, e.ID)
	if err != nil {
		return err
	}
	record.Set("id", e.ID)
	record.Set("name", e.Name)
	record.Set("description", e.Description)
	record.Set("venue", e.Venue)
	record.Set("venueId", e.VenueID)
	record.Set("startTime", e.StartTime)
	record.Set("endTime", e.EndTime)
	record.Set("maxTickets", e.MaxTickets)
	record.Set("ticketsSold", e.TicketsSold)
	record.Set("price", e.Price)
	record.Set("status", e.Status)
	record.Set("venueRefMigrated", e.VenueRefMigrated)
	record.Set("defaultsBackfilled", e.DefaultsBackfilled)

	if err := s.app.Save(record); err != nil {
		return status.Wrap(status.Internal, "failed to save event", err)
	}
	return nil
}

func (s *PocketBase) CreateAuditRecord(ctx context.Context, a *models.AuditRecord) error {
	collection, err := s.app.FindCollectionByNameOrId(CollectionTransactions)
	if err != nil {
		return status.Wrap(status.Internal, "transactions collection missing", err)
	}
	record := core.NewRecord(collection)
	record.Set("id", a.ID)
	record.Set("type", a.Type)
	record.Set("userId", a.UserID)
	record.Set("eventId", a.EventID)
	record.Set("ticketId", a.TicketID)
	record.Set("amount", a.Amount)
	record.Set("timestamp", a.Timestamp)
	record.Set("status", a.Status)

	if err := s.app.Save(record); err != nil {
		return status.Wrap(status.Internal, "failed to save audit record", err)
	}
	return nil
}

// --- migration surface ---

func (s *PocketBase) ListEvents(ctx context.Context) ([]*models.Event, error) {
	records, err := s.app.FindAllRecords(CollectionEvents)
	if err != nil {
		return nil, status.Wrap(status.Internal, "failed to list events", err)
	}
	events := make([]*models.Event, len(records))
	for i, r := range records {
		events[i] = eventFromRecord(r)
	}
	return events, nil
}

func (s *PocketBase) SaveEvents(ctx context.Context, batch []*models.Event) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		tx := &PocketBase{app: txApp}
		for _, e := range batch {
			if err := tx.SaveEvent(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PocketBase) ListVenues(ctx context.Context) ([]*models.Venue, error) {
	records, err := s.app.FindAllRecords(CollectionVenues)
	if err != nil {
		return nil, status.Wrap(status.Internal, "failed to list venues", err)
	}
	venues := make([]*models.Venue, len(records))
	for i, r := range records {
		venues[i] = venueFromRecord(r)
	}
	return venues, nil
}

func (s *PocketBase) SaveVenues(ctx context.Context, batch []*models.Venue) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		tx := &PocketBase{app: txApp}
		for _, v := range batch {
			record, err := tx.findOrNewRecord(CollectionVenues, v.ID)
			if err != nil {
				return err
			}
			record.Set("id", v.ID)
			record.Set("name", v.Name)
			record.Set("admins", v.Admins)
			record.Set("subAdmins", v.SubAdmins)
			record.Set("eventIds", v.EventIDs)
			record.Set("eventCount", v.EventCount)
			if err := tx.app.Save(record); err != nil {
				return status.Wrap(status.Internal, "failed to save venue", err)
			}
		}
		return nil
	})
}

func (s *PocketBase) ListTickets(ctx context.Context) ([]*models.Ticket, error) {
	records, err := s.app.FindAllRecords(CollectionTickets)
	if err != nil {
		return nil, status.Wrap(status.Internal, "failed to list tickets", err)
	}
	tickets := make([]*models.Ticket, len(records))
	for i, r := range records {
		tickets[i] = ticketFromRecord(r)
	}
	return tickets, nil
}

func (s *PocketBase) SaveTickets(ctx context.Context, batch []*models.Ticket) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		tx := &PocketBase{app: txApp}
		for _, t := range batch {
			if err := tx.saveTicketTo(CollectionTickets, t); err != nil {
				return err
			}
			if err := tx.saveTicketTo(CollectionUserTickets, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PocketBase) ListLegacyBookmarks(ctx context.Context) ([]*models.Bookmark, error) {
	records, err := s.app.FindAllRecords(CollectionLegacyBookmarks)
	if err != nil {
		return nil, status.Wrap(status.Internal, "failed to list legacy bookmarks", err)
	}
	bookmarks := make([]*models.Bookmark, len(records))
	for i, r := range records {
		bookmarks[i] = &models.Bookmark{
			ID:        r.Id,
			UserID:    r.GetString("userId"),
			EventID:   r.GetString("eventId"),
			CreatedAt: r.GetDateTime("created").Time(),
		}
	}
	return bookmarks, nil
}

func (s *PocketBase) HasBookmark(ctx context.Context, key string) (bool, error) {
	_, err := s.app.FindRecordById(CollectionBookmarks, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, status.Wrap(status.Internal, "failed to check bookmark", err)
	}
	return true, nil
}

func (s *PocketBase) SaveBookmarks(ctx context.Context, batch []*models.Bookmark) error {
	collection, err := s.app.FindCollectionByNameOrId(CollectionBookmarks)
	if err != nil {
		return status.Wrap(status.Internal, "bookmarks collection missing", err)
	}
	return s.app.RunInTransaction(func(txApp core.App) error {
		for _, b := range batch {
			record := core.NewRecord(collection)
			record.Set("id", b.ID)
			record.Set("userId", b.UserID)
			record.Set("eventId", b.EventID)
			record.Set("createdAt", b.CreatedAt)
			if err := txApp.Save(record); err != nil {
				return status.Wrap(status.Internal, "failed to save bookmark", err)
			}
		}
		return nil
	})
}

func (s *PocketBase) ListEventStats(ctx context.Context) ([]*models.EventStats, error) {
	records, err := s.app.FindAllRecords(CollectionEventStats)
	if err != nil {
		return nil, status.Wrap(status.Internal, "failed to list event stats", err)
	}
	stats := make([]*models.EventStats, len(records))
	for i, r := range records {
		stats[i] = &models.EventStats{
			EventID:     r.GetString("eventId"),
			TicketsSold: r.GetInt("ticketsSold"),
			Confirmed:   r.GetInt("confirmed"),
			Used:        r.GetInt("used"),
			Cancelled:   r.GetInt("cancelled"),
			Refunded:    r.GetInt("refunded"),
			Revenue:     r.GetFloat("revenue"),
			TodaySales:  r.GetInt("todaySales"),
			ComputedAt:  r.GetDateTime("computedAt").Time(),
		}
	}
	return stats, nil
}

func (s *PocketBase) SaveEventStats(ctx context.Context, batch []*models.EventStats) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		tx := &PocketBase{app: txApp}
		for _, st := range batch {
			record, err := tx.findOrNewRecord(CollectionEventStats, st.EventID)
			if err != nil {
				return err
			}
			record.Set("id", st.EventID)
			record.Set("eventId", st.EventID)
			record.Set("ticketsSold", st.TicketsSold)
			record.Set("confirmed", st.Confirmed)
			record.Set("used", st.Used)
			record.Set("cancelled", st.Cancelled)
			record.Set("refunded", st.Refunded)
			record.Set("revenue", st.Revenue)
			record.Set("todaySales", st.TodaySales)
			record.Set("computedAt", st.ComputedAt)
			if err := tx.app.Save(record); err != nil {
				return status.Wrap(status.Internal, "failed to save event stats", err)
			}
		}
		return nil
	})
}

// --- record mapping ---

func (s *PocketBase) findOrNewRecord(collection, id string) (*core.Record, error) {
	record, err := s.app.FindRecordById(collection, id)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, status.Wrap(status.Internal, "failed to load record", err)
	}
	col, err := s.app.FindCollectionByNameOrId(collection)
	if err != nil {
		return nil, status.Wrap(status.Internal, "collection missing: "+collection, err)
	}
	return core.NewRecord(col), nil
}

func eventFromRecord(r *core.Record) *models.Event {
	return &models.Event{
		ID:                 r.Id,
		Name:               r.GetString("name"),
		Description:        r.GetString("description"),
		Venue:              r.GetString("venue"),
		VenueID:            r.GetString("venueId"),
		StartTime:          r.GetDateTime("startTime").Time(),
		EndTime:            r.GetDateTime("endTime").Time(),
		MaxTickets:         r.GetInt("maxTickets"),
		TicketsSold:        r.GetInt("ticketsSold"),
		Price:              r.GetFloat("price"),
		Status:             r.GetString("status"),
		VenueRefMigrated:   r.GetBool("venueRefMigrated"),
		DefaultsBackfilled: r.GetBool("defaultsBackfilled"),
	}
}

func ticketFromRecord(r *core.Record) *models.Ticket {
	return &models.Ticket{
		ID:                 r.Id,
		EventID:            r.GetString("eventId"),
		UserID:             r.GetString("userId"),
		Status:             r.GetString("status"),
		QRCode:             r.GetString("qrCode"),
		TicketNumber:       r.GetString("ticketNumber"),
		TotalPrice:         r.GetFloat("totalPrice"),
		PurchaseDate:       r.GetDateTime("purchaseDate").Time(),
		ScannedAt:          optionalTime(r, "scannedAt"),
		CancelledAt:        optionalTime(r, "cancelledAt"),
		RefundedAt:         optionalTime(r, "refundedAt"),
		DefaultsBackfilled: r.GetBool("defaultsBackfilled"),
	}
}

func venueFromRecord(r *core.Record) *models.Venue {
	return &models.Venue{
		ID:         r.Id,
		Name:       r.GetString("name"),
		Admins:     r.GetStringSlice("admins"),
		SubAdmins:  r.GetStringSlice("subAdmins"),
		EventIDs:   r.GetStringSlice("eventIds"),
		EventCount: r.GetInt("eventCount"),
	}
}

func optionalTime(r *core.Record, field string) *time.Time {
	dt := r.GetDateTime(field)
	if dt.IsZero() {
		return nil
	}
	t := dt.Time()
	return &t
}

func setOptionalTime(record *core.Record, field string, t *time.Time) {
	if t == nil {
		record.Set(field, "")
		return
	}
	record.Set(field, *t)
}
