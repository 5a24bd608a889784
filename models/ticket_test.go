package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{TicketConfirmed, TicketUsed, true},
		{TicketConfirmed, TicketCancelled, true},
		{TicketConfirmed, TicketRefunded, true},
		{TicketConfirmed, TicketDeleted, true},
		{TicketUsed, TicketRefunded, true},
		{TicketUsed, TicketDeleted, true},
		{TicketCancelled, TicketDeleted, true},
		{TicketRefunded, TicketDeleted, true},

		// Nothing ever returns to confirmed.
		{TicketUsed, TicketConfirmed, false},
		{TicketCancelled, TicketConfirmed, false},
		{TicketRefunded, TicketConfirmed, false},
		{TicketDeleted, TicketConfirmed, false},

		{TicketUsed, TicketCancelled, false},
		{TicketCancelled, TicketUsed, false},
		{TicketCancelled, TicketRefunded, false},
		{TicketDeleted, TicketUsed, false},
		{"", TicketCancelled, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestBookmarkKey(t *testing.T) {
	assert.Equal(t, "user1_event1", BookmarkKey("user1", "event1"))
}
