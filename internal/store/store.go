// Package store defines the datastore contracts the core depends on and the
// PocketBase implementation of them. Services receive these interfaces as
// constructor parameters so tests can substitute the in-memory double.
package store

import (
	"context"

	"tickethub/models"
)

// Tx is the view of the datastore available inside a purchase transaction.
// All reads and writes observe one consistent snapshot and commit or abort
// together; conflicting concurrent transactions are resolved by the
// underlying transaction primitive, not by application-level locking.
type Tx interface {
	// GetEvent returns a not-found error when the event does not exist.
	GetEvent(ctx context.Context, id string) (*models.Event, error)

	// FindConfirmedTicket returns (nil, nil) when the (event, user) pair has
	// no confirmed ticket.
	FindConfirmedTicket(ctx context.Context, eventID, userID string) (*models.Ticket, error)

	// CreateTicket writes both the root ticket record and the mirrored
	// per-purchaser copy. The two must never diverge.
	CreateTicket(ctx context.Context, t *models.Ticket) error

	SaveEvent(ctx context.Context, e *models.Event) error

	CreateAuditRecord(ctx context.Context, a *models.AuditRecord) error
}

// PurchaseStore is what the purchase path and the ticket lifecycle need.
type PurchaseStore interface {
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error

	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	SaveTicket(ctx context.Context, t *models.Ticket) error
}

// MigrationStore is the bulk-read, batch-write surface the migration family
// works against. Each Save* call commits one bounded batch independently.
type MigrationStore interface {
	ListEvents(ctx context.Context) ([]*models.Event, error)
	SaveEvents(ctx context.Context, batch []*models.Event) error

	ListVenues(ctx context.Context) ([]*models.Venue, error)
	SaveVenues(ctx context.Context, batch []*models.Venue) error

	ListTickets(ctx context.Context) ([]*models.Ticket, error)
	SaveTickets(ctx context.Context, batch []*models.Ticket) error

	// ListLegacyBookmarks reads the old per-user nested shape.
	ListLegacyBookmarks(ctx context.Context) ([]*models.Bookmark, error)
	// HasBookmark checks the flat destination collection by composite key.
	HasBookmark(ctx context.Context, key string) (bool, error)
	SaveBookmarks(ctx context.Context, batch []*models.Bookmark) error

	ListEventStats(ctx context.Context) ([]*models.EventStats, error)
	SaveEventStats(ctx context.Context, batch []*models.EventStats) error
}

// Store is the full surface implemented by the PocketBase adapter and the
// in-memory double.
type Store interface {
	PurchaseStore
	MigrationStore
}
