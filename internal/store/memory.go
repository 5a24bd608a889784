package store

import (
	"context"
	"sync"

	"tickethub/internal/status"
	"tickethub/models"
)

// Memory is an in-memory Store used by tests and local development. Its
// transactions are fully serialized: each RunInTransaction works on a deep
// copy of the data and the copy replaces the live state only on success, so a
// failed transaction leaves nothing behind.
type Memory struct {
	mu sync.Mutex

	events          map[string]*models.Event
	tickets         map[string]*models.Ticket
	userTickets     map[string]*models.Ticket
	audits          map[string]*models.AuditRecord
	venues          map[string]*models.Venue
	legacyBookmarks map[string]*models.Bookmark
	bookmarks       map[string]*models.Bookmark
	eventStats      map[string]*models.EventStats
}

func NewMemory() *Memory {
	return &Memory{
		events:          map[string]*models.Event{},
		tickets:         map[string]*models.Ticket{},
		userTickets:     map[string]*models.Ticket{},
		audits:          map[string]*models.AuditRecord{},
		venues:          map[string]*models.Venue{},
		legacyBookmarks: map[string]*models.Bookmark{},
		bookmarks:       map[string]*models.Bookmark{},
		eventStats:      map[string]*models.EventStats{},
	}
}

func (m *Memory) RunInTransaction(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.clone()
	if err := fn(staged); err != nil {
		return err
	}
	m.adopt(staged)
	return nil
}

func (m *Memory) clone() *Memory {
	c := NewMemory()
	for k, v := range m.events {
		e := *v
		c.events[k] = &e
	}
	for k, v := range m.tickets {
		t := *v
		c.tickets[k] = &t
	}
	for k, v := range m.userTickets {
		t := *v
		c.userTickets[k] = &t
	}
	for k, v := range m.audits {
		a := *v
		c.audits[k] = &a
	}
	for k, v := range m.venues {
		ve := *v
		c.venues[k] = &ve
	}
	for k, v := range m.legacyBookmarks {
		b := *v
		c.legacyBookmarks[k] = &b
	}
	for k, v := range m.bookmarks {
		b := *v
		c.bookmarks[k] = &b
	}
	for k, v := range m.eventStats {
		s := *v
		c.eventStats[k] = &s
	}
	return c
}

func (m *Memory) adopt(staged *Memory) {
	m.events = staged.events
	m.tickets = staged.tickets
	m.userTickets = staged.userTickets
	m.audits = staged.audits
	m.venues = staged.venues
	m.legacyBookmarks = staged.legacyBookmarks
	m.bookmarks = staged.bookmarks
	m.eventStats = staged.eventStats
}

func (m *Memory) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, status.E(status.NotFound, "event not found")
	}
	copied := *e
	return &copied, nil
}

func (m *Memory) FindConfirmedTicket(ctx context.Context, eventID, userID string) (*models.Ticket, error) {
	for _, t := range m.tickets {
		if t.EventID == eventID && t.UserID == userID && t.Status == models.TicketConfirmed {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateTicket(ctx context.Context, t *models.Ticket) error {
	root := *t
	mirror := *t
	m.tickets[t.ID] = &root
	m.userTickets[t.ID] = &mirror
	return nil
}

func (m *Memory) SaveEvent(ctx context.Context, e *models.Event) error {
	copied := *e
	m.events[e.ID] = &copied
	return nil
}

func (m *Memory) CreateAuditRecord(ctx context.Context, a *models.AuditRecord) error {
	copied := *a
	m.audits[a.ID] = &copied
	return nil
}

func (m *Memory) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, status.E(status.NotFound, "ticket not found")
	}
	copied := *t
	return &copied, nil
}

func (m *Memory) SaveTicket(ctx context.Context, t *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	root := *t
	mirror := *t
	m.tickets[t.ID] = &root
	m.userTickets[t.ID] = &mirror
	return nil
}

func (m *Memory) ListEvents(ctx context.Context) ([]*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Event, 0, len(m.events))
	for _, e := range m.events {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (m *Memory) SaveEvents(ctx context.Context, batch []*models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range batch {
		copied := *e
		m.events[e.ID] = &copied
	}
	return nil
}

func (m *Memory) ListVenues(ctx context.Context) ([]*models.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Venue, 0, len(m.venues))
	for _, v := range m.venues {
		copied := *v
		out = append(out, &copied)
	}
	return out, nil
}

func (m *Memory) SaveVenues(ctx context.Context, batch []*models.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range batch {
		copied := *v
		m.venues[v.ID] = &copied
	}
	return nil
}

func (m *Memory) ListTickets(ctx context.Context) ([]*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (m *Memory) SaveTickets(ctx context.Context, batch []*models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range batch {
		root := *t
		mirror := *t
		m.tickets[t.ID] = &root
		m.userTickets[t.ID] = &mirror
	}
	return nil
}

func (m *Memory) ListLegacyBookmarks(ctx context.Context) ([]*models.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Bookmark, 0, len(m.legacyBookmarks))
	for _, b := range m.legacyBookmarks {
		copied := *b
		out = append(out, &copied)
	}
	return out, nil
}

func (m *Memory) HasBookmark(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bookmarks[key]
	return ok, nil
}

func (m *Memory) SaveBookmarks(ctx context.Context, batch []*models.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range batch {
		copied := *b
		m.bookmarks[b.ID] = &copied
	}
	return nil
}

func (m *Memory) ListEventStats(ctx context.Context) ([]*models.EventStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.EventStats, 0, len(m.eventStats))
	for _, s := range m.eventStats {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (m *Memory) SaveEventStats(ctx context.Context, batch []*models.EventStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range batch {
		copied := *s
		m.eventStats[s.EventID] = &copied
	}
	return nil
}

// Seed helpers used by tests.

func (m *Memory) SeedEvent(e *models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *e
	m.events[e.ID] = &copied
}

func (m *Memory) SeedLegacyBookmark(b *models.Bookmark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *b
	m.legacyBookmarks[b.ID] = &copied
}

func (m *Memory) SeedTicket(t *models.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	root := *t
	mirror := *t
	m.tickets[t.ID] = &root
	m.userTickets[t.ID] = &mirror
}

// MirrorTicket returns the per-purchaser copy, for divergence checks.
func (m *Memory) MirrorTicket(id string) *models.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.userTickets[id]
	if !ok {
		return nil
	}
	copied := *t
	return &copied
}

// AuditRecords returns all audit records, for atomicity checks.
func (m *Memory) AuditRecords() []*models.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditRecord, 0, len(m.audits))
	for _, a := range m.audits {
		copied := *a
		out = append(out, &copied)
	}
	return out
}
