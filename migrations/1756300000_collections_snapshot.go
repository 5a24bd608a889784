package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Base collections for the ticketing core. Record ids are relaxed to allow
// the deterministic keys the application mints itself (cuid ticket ids,
// venue slugs, userId_eventId bookmark keys).
func init() {
	m.Register(func(app core.App) error {
		jsonData := `[
			{
				"id": "thc_events_00001",
				"name": "events",
				"type": "base",
				"system": false,
				"fields": [
					{"name": "id", "type": "text", "system": true, "required": true, "primaryKey": true, "autogeneratePattern": "[a-z0-9]{15}", "pattern": "^[a-z0-9_]+$", "min": 2, "max": 64},
					{"name": "name", "type": "text", "required": true, "max": 255},
					{"name": "description", "type": "text", "max": 5000},
					{"name": "venue", "type": "text", "max": 255},
					{"name": "venueId", "type": "text", "max": 64},
					{"name": "startTime", "type": "date"},
					{"name": "endTime", "type": "date"},
					{"name": "maxTickets", "type": "number", "onlyInt": true, "min": 0},
					{"name": "ticketsSold", "type": "number", "onlyInt": true, "min": 0},
					{"name": "price", "type": "number", "min": 0},
					{"name": "status", "type": "select", "maxSelect": 1, "values": ["active", "soldout", "past"]},
					{"name": "venueRefMigrated", "type": "bool"},
					{"name": "defaultsBackfilled", "type": "bool"},
					{"name": "created", "type": "autodate", "onCreate": true},
					{"name": "updated", "type": "autodate", "onCreate": true, "onUpdate": true}
				],
				"indexes": [
					"CREATE INDEX idx_events_venue_id ON events (venueId)",
					"CREATE INDEX idx_events_start_time ON events (startTime)"
				]
			},
			{
				"id": "thc_tickets_0001",
				"name": "tickets",
				"type": "base",
				"system": false,
				"fields": [
					{"name": "id", "type": "text", "system": true, "required": true, "primaryKey": true, "autogeneratePattern": "[a-z0-9]{15}", "pattern": "^[a-z0-9_]+$", "min": 2, "max": 64},
					{"name": "eventId", "type": "text", "required": true, "max": 64},
					{"name": "userId", "type": "text", "required": true, "max": 64},
					{"name": "status", "type": "select", "maxSelect": 1, "values": ["confirmed", "used", "cancelled", "refunded", "deleted"]},
					{"name": "qrCode", "type": "text", "max": 2000},
					{"name": "ticketNumber", "type": "text", "max": 32},
					{"name": "totalPrice", "type": "number", "min": 0},
					{"name": "purchaseDate", "type": "date"},
					{"name": "scannedAt", "type": "date"},
					{"name": "cancelledAt", "type": "date"},
					{"name": "refundedAt", "type": "date"},
					{"name": "defaultsBackfilled", "type": "bool"},
					{"name": "created", "type": "autodate", "onCreate": true},
					{"name": "updated", "type": "autodate", "onCreate": true, "onUpdate": true}
				],
				"indexes": [
					"CREATE INDEX idx_tickets_event_user_status ON tickets (eventId, userId, status)"
				]
			},
			{
				"id": "thc_usrtick_0001",
				"name": "user_tickets",
				"type": "base",
				"system": false,
				"fields": [
					{"name": "id", "type": "text", "system": true, "required": true, "primaryKey": true, "autogeneratePattern": "[a-z0-9]{15}", "pattern": "^[a-z0-9_]+$", "min": 2, "max": 64},
					{"name": "eventId", "type": "text", "required": true, "max": 64},
					{"name": "userId", "type": "text", "required": true, "max": 64},
					{"name": "status", "type": "select", "maxSelect": 1, "values": ["confirmed", "used", "cancelled", "refunded", "deleted"]},
					{"name": "qrCode", "type": "text", "max": 2000},
					{"name": "ticketNumber", "type": "text", "max": 32},
					{"name": "totalPrice", "type": "number", "min": 0},
					{"name": "purchaseDate", "type": "date"},
					{"name": "scannedAt", "type": "date"},
					{"name": "cancelledAt", "type": "date"},
					{"name": "refundedAt", "type": "date"},
					{"name": "defaultsBackfilled", "type": "bool"},
					{"name": "created", "type": "autodate", "onCreate": true},
					{"name": "updated", "type": "autodate", "onCreate": true, "onUpdate": true}
				],
				"indexes": [
					"CREATE INDEX idx_user_tickets_user ON user_tickets (userId)"
				]
			},
			{
				"id": "thc_transac_0001",
				"name": "transactions",
				"type": "base",
				"system": false,
				"fields": [
					{"name": "id", "type": "text", "system": true, "required": true, "primaryKey": true, "autogeneratePattern": "[a-z0-9]{15}", "pattern": "^[a-z0-9_]+$", "min": 2, "max": 64},
					{"name": "type", "type": "text", "required": true, "max": 64},
					{"name": "userId", "type": "text", "required": true, "max": 64},
					{"name": "eventId", "type": "text", "required": true, "max": 64},
					{"name": "ticketId", "type": "text", "max": 64},
					{"name": "amount", "type": "number", "min": 0},
					{"name": "timestamp", "type": "date"},
					{"name": "status", "type": "text", "max": 32},
					{"name": "created", "type": "autodate", "onCreate": true}
				],
				"indexes": [
					"CREATE INDEX idx_transactions_event ON transactions (eventId)",
					"CREATE INDEX idx_transactions_user ON transactions (userId)"
				]
			},
			{
				"id": "thc_venues_00001",
				"name": "venues",
				"type": "base",
				"system": false,
				"fields": [
					{"name": "id", "type": "text", "system": true, "required": true, "primaryKey": true, "autogeneratePattern": "[a-z0-9]{15}", "pattern": "^[a-z0-9_]+$", "min": 2, "max": 64},
					{"name": "name", "type": "text", "required": true, "max": 255},
					{"name": "admins", "type": "json", "maxSize": 100000},
					{"name": "subAdmins", "type": "json", "maxSize": 100000},
					{"name": "eventIds", "type": "json", "maxSize": 500000},
					{"name": "eventCount", "type": "number", "onlyInt": true, "min": 0},
					{"name": "created", "type": "autodate", "onCreate": true},
					{"name": "updated", "type": "autodate", "onCreate": true, "onUpdate": true}
				]
			},
			{
				"id": "thc_usrbkm_00001",
				"name": "user_bookmarks",
				"type": "base",
				"system": false,
				"fields": [
					{"name": "id", "type": "text", "system": true, "required": true, "primaryKey": true, "autogeneratePattern": "[a-z0-9]{15}", "pattern": "^[a-z0-9_]+$", "min": 2, "max": 64},
					{"name": "userId", "type": "text", "required": true, "max": 64},
					{"name": "eventId", "type": "text", "required": true, "max": 64},
					{"name": "created", "type": "autodate", "onCreate": true}
				]
			},
			{
				"id": "thc_bookmrk_0001",
				"name": "bookmarks",
				"type": "base",
				"system": false,
				"fields": [
					{"name": "id", "type": "text", "system": true, "required": true, "primaryKey": true, "autogeneratePattern": "[a-z0-9]{15}", "pattern": "^[a-z0-9_]+$", "min": 2, "max": 130},
					{"name": "userId", "type": "text", "required": true, "max": 64},
					{"name": "eventId", "type": "text", "required": true, "max": 64},
					{"name": "createdAt", "type": "date"},
					{"name": "created", "type": "autodate", "onCreate": true}
				],
				"indexes": [
					"CREATE INDEX idx_bookmarks_user ON bookmarks (userId)"
				]
			},
			{
				"id": "thc_evstats_0001",
				"name": "event_stats",
				"type": "base",
				"system": false,
				"fields": [
					{"name": "id", "type": "text", "system": true, "required": true, "primaryKey": true, "autogeneratePattern": "[a-z0-9]{15}", "pattern": "^[a-z0-9_]+$", "min": 2, "max": 64},
					{"name": "eventId", "type": "text", "required": true, "max": 64},
					{"name": "ticketsSold", "type": "number", "onlyInt": true, "min": 0},
					{"name": "confirmed", "type": "number", "onlyInt": true, "min": 0},
					{"name": "used", "type": "number", "onlyInt": true, "min": 0},
					{"name": "cancelled", "type": "number", "onlyInt": true, "min": 0},
					{"name": "refunded", "type": "number", "onlyInt": true, "min": 0},
					{"name": "revenue", "type": "number", "min": 0},
					{"name": "todaySales", "type": "number", "onlyInt": true, "min": 0},
					{"name": "computedAt", "type": "date"},
					{"name": "updated", "type": "autodate", "onCreate": true, "onUpdate": true}
				]
			}
		]`

		return app.ImportCollectionsByMarshaledJSON([]byte(jsonData), false)
	}, func(app core.App) error {
		names := []string{
			"event_stats",
			"bookmarks",
			"user_bookmarks",
			"venues",
			"transactions",
			"user_tickets",
			"tickets",
			"events",
		}
		for _, name := range names {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				continue
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
