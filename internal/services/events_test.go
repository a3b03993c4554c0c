package services

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

type channelNotifier struct {
	events chan Event
}

func (n *channelNotifier) Notify(event Event) error {
	n.events <- event
	return nil
}

func testHub(t *testing.T) (*EventHub, *channelNotifier) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	hub := NewEventHub(logger)
	notifier := &channelNotifier{events: make(chan Event, 16)}
	hub.AddNotifier(notifier)
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub, notifier
}

func waitEvent(t *testing.T, n *channelNotifier) Event {
	t.Helper()
	select {
	case event := <-n.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
		return Event{}
	}
}

func TestHubDeliversToNotifier(t *testing.T) {
	hub, notifier := testHub(t)

	event := NewEvent(EventContestReady)
	event.ContestID = 7
	event.Reason = "fill rate above threshold"
	hub.Publish(event)

	got := waitEvent(t, notifier)
	assert.Equal(t, EventContestReady, got.Type)
	assert.Equal(t, uint(7), got.ContestID)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())
}

func TestHubLineupSwapped(t *testing.T) {
	hub, notifier := testHub(t)

	hub.LineupSwapped(models.SwapLogEntry{
		LineupID:      3,
		OldPlayerID:   "p1",
		NewPlayerID:   "p2",
		OldPlayerName: "Player One",
		NewPlayerName: "Player Two",
		SlotName:      "WR1",
		Reason:        models.SwapReasonInjury,
	})

	got := waitEvent(t, notifier)
	assert.Equal(t, EventLineupSwapped, got.Type)
	assert.Equal(t, uint(3), got.LineupID)
	assert.Equal(t, "p1", got.OldPlayer)
	assert.Equal(t, "p2", got.NewPlayer)
	assert.Equal(t, string(models.SwapReasonInjury), got.Reason)
	require.NotNil(t, got.Detail)
	assert.Equal(t, "WR1", got.Detail["slot"])
}

func TestHubPublishNeverBlocks(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	hub := NewEventHub(logger)
	// No Run loop draining: fill the queue past capacity.
	for i := 0; i < 200; i++ {
		hub.Publish(NewEvent(EventProjectionsFresh))
	}
}
