// internal/handlers/ws_test.go
package handlers

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/jordwess/knavery/internal/game"
)

func TestClampName(t *testing.T) {
	assert.Equal(t, "Alice", clampName("  Alice  "))
	assert.Equal(t, "", clampName("   "))

	long := strings.Repeat("x", 100)
	assert.Len(t, clampName(long), maxNameLen)
}

func TestHubSendSkipsUnknownConns(t *testing.T) {
	logger := logrus.New()
	hub := NewHub(logger)

	conn := &Conn{ID: uuid.New(), OutChan: make(chan game.Event, 2)}
	hub.mu.Lock()
	hub.conns[conn.ID] = conn
	hub.mu.Unlock()

	// A bot id with no socket behind it must not panic or block.
	hub.Send([]uuid.UUID{uuid.New(), conn.ID}, game.Event{Type: game.EventReadyCount})

	assert.Len(t, conn.OutChan, 1)
}

func TestConnWriteDropsWhenFull(t *testing.T) {
	logger := logrus.New()
	conn := &Conn{ID: uuid.New(), OutChan: make(chan game.Event, 1)}

	conn.Write(game.Event{Type: game.EventUpdatePlayers}, logger)
	conn.Write(game.Event{Type: game.EventReadyCount}, logger) // queue full, dropped

	assert.Len(t, conn.OutChan, 1)
	ev := <-conn.OutChan
	assert.Equal(t, game.EventUpdatePlayers, ev.Type)
}
