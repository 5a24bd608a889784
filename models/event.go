package models

import (
	"time"
)

// Event statuses derived by the status backfill migration. An empty status
// means the record predates the status field.
const (
	EventActive  = "active"
	EventSoldOut = "soldout"
	EventPast    = "past"
)

type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"` // free-text venue name, legacy
	VenueID     string    `json:"venue_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MaxTickets  int       `json:"max_tickets"`
	TicketsSold int       `json:"tickets_sold"`
	Price       float64   `json:"price"`
	Status      string    `json:"status"`

	// migration phase markers
	VenueRefMigrated   bool `json:"venue_ref_migrated"`
	DefaultsBackfilled bool `json:"defaults_backfilled"`
}

// Available returns how many tickets can still be sold.
func (e *Event) Available() int {
	return e.MaxTickets - e.TicketsSold
}

// HasStarted reports whether the event start time is at or before now.
func (e *Event) HasStarted(now time.Time) bool {
	return !e.StartTime.After(now)
}

type Venue struct {
	ID         string   `json:"id"` // derived slug, e.g. "the_grand_hall"
	Name       string   `json:"name"`
	Admins     []string `json:"admins"`
	SubAdmins  []string `json:"sub_admins"`
	EventIDs   []string `json:"event_ids"`
	EventCount int      `json:"event_count"`
}

// EventStats is the read-optimized aggregate rebuilt by the stats migration.
// It is recomputed from scratch on every run, never updated incrementally.
type EventStats struct {
	EventID     string    `json:"event_id"`
	TicketsSold int       `json:"tickets_sold"`
	Confirmed   int       `json:"confirmed"`
	Used        int       `json:"used"`
	Cancelled   int       `json:"cancelled"`
	Refunded    int       `json:"refunded"`
	Revenue     float64   `json:"revenue"`
	TodaySales  int       `json:"today_sales"`
	ComputedAt  time.Time `json:"computed_at"`
}
