package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventAvailable(t *testing.T) {
	e := &Event{MaxTickets: 100, TicketsSold: 40}
	assert.Equal(t, 60, e.Available())

	e.TicketsSold = 100
	assert.Equal(t, 0, e.Available())
}

func TestEventHasStarted(t *testing.T) {
	now := time.Now()

	upcoming := &Event{StartTime: now.Add(time.Hour)}
	assert.False(t, upcoming.HasStarted(now))

	started := &Event{StartTime: now.Add(-time.Minute)}
	assert.True(t, started.HasStarted(now))

	// Start exactly at now counts as started.
	exact := &Event{StartTime: now}
	assert.True(t, exact.HasStarted(now))
}
