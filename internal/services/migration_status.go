package services

import (
	"context"

	"tickethub/internal/auth"
	"tickethub/internal/store"
	"tickethub/models"
)

// Read-only verification checks paired with each migration phase. They carry
// the same auth gate as the migrations themselves and mutate nothing; admins
// run them to confirm completion before depending code paths assume the new
// schema shape.

func (s *MigrationService) CheckVenues(ctx context.Context, claims *auth.Claims) ([]models.StatusReport, error) {
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
	existing := make(map[string]bool, len(venues))
	for _, v := range venues {
		existing[v.ID] = true
	}

	distinct := map[string]bool{}
	for _, e := range events {
		if slug := VenueSlug(e.Venue); slug != "" {
			distinct[slug] = true
		}
	}

	migrated := 0
	for slug := range distinct {
		if existing[slug] {
			migrated++
		}
	}

	return []models.StatusReport{{
		Collection: store.CollectionVenues,
		Migrated:   migrated,
		Remaining:  len(distinct) - migrated,
		Total:      len(distinct),
	}}, nil
}

func (s *MigrationService) CheckEventVenueRefs(ctx context.Context, claims *auth.Claims) ([]models.StatusReport, error) {
	if err := s.gate(claims); err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	migrated := 0
	for _, e := range events {
		if e.VenueRefMigrated {
			migrated++
		}
	}

	return []models.StatusReport{{
		Collection: store.CollectionEvents,
		Migrated:   migrated,
		Remaining:  len(events) - migrated,
		Total:      len(events),
	}}, nil
}

func (s *MigrationService) CheckBookmarks(ctx context.Context, claims *auth.Claims) ([]models.StatusReport, error) {
	if err := s.gate(claims); err != nil {
		return nil, err
	}

	legacy, err := s.store.ListLegacyBookmarks(ctx)
	if err != nil {
		return nil, err
	}

	migrated := 0
	for _, b := range legacy {
		if b.UserID == "" || b.EventID == "" {
			continue
		}
		exists, err := s.store.HasBookmark(ctx, models.BookmarkKey(b.UserID, b.EventID))
		if err != nil {
			return nil, err
		}
		if exists {
			migrated++
		}
	}

	return []models.StatusReport{{
		Collection: store.CollectionBookmarks,
		Migrated:   migrated,
		Remaining:  len(legacy) - migrated,
		Total:      len(legacy),
	}}, nil
}

func (s *MigrationService) CheckDefaults(ctx context.Context, claims *auth.Claims) ([]models.StatusReport, error) {
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
	venues, err := s.store.ListVenues(ctx)
	if err != nil {
		return nil, err
	}

	migratedEvents := 0
	for _, e := range events {
		if e.DefaultsBackfilled {
			migratedEvents++
		}
	}
	migratedTickets := 0
	for _, t := range tickets {
		if t.DefaultsBackfilled {
			migratedTickets++
		}
	}
	migratedVenues := 0
	for _, v := range venues {
		if v.EventCount > 0 || len(v.EventIDs) == 0 {
			migratedVenues++
		}
	}

	return []models.StatusReport{
		{
			Collection: store.CollectionEvents,
			Migrated:   migratedEvents,
			Remaining:  len(events) - migratedEvents,
			Total:      len(events),
		},
		{
			Collection: store.CollectionTickets,
			Migrated:   migratedTickets,
			Remaining:  len(tickets) - migratedTickets,
			Total:      len(tickets),
		},
		{
			Collection: store.CollectionVenues,
			Migrated:   migratedVenues,
			Remaining:  len(venues) - migratedVenues,
			Total:      len(venues),
		},
	}, nil
}

func (s *MigrationService) CheckEventStatus(ctx context.Context, claims *auth.Claims) ([]models.StatusReport, error) {
	if err := s.gate(claims); err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	migrated := 0
	for _, e := range events {
		if e.Status != "" {
			migrated++
		}
	}

	return []models.StatusReport{{
		Collection: store.CollectionEvents,
		Migrated:   migrated,
		Remaining:  len(events) - migrated,
		Total:      len(events),
	}}, nil
}

func (s *MigrationService) CheckEventStats(ctx context.Context, claims *auth.Claims) ([]models.StatusReport, error) {
	if err := s.gate(claims); err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.ListEventStats(ctx)
	if err != nil {
		return nil, err
	}

	return []models.StatusReport{{
		Collection: store.CollectionEventStats,
		Migrated:   len(stats),
		Remaining:  len(events) - len(stats),
		Total:      len(events),
	}}, nil
}
