// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jordwess/knavery/internal/game"
)

const outChanSize = 64

// Conn is one live websocket connection: a stable identity plus an ordered
// outbound queue drained by its write pump.
type Conn struct {
	ID      uuid.UUID
	OutChan chan game.Event
	Cancel  context.CancelFunc
}

// Write enqueues an event without blocking. A full or closed queue drops the
// event; the read loop's disconnect handling owns real cleanup.
func (c *Conn) Write(ev game.Event, logger *logrus.Logger) {
	select {
	case c.OutChan <- ev:
	default:
		logger.Warnf("conn %s: outbound queue full, dropped %s", c.ID, ev.Type)
	}
}

// Hub tracks live connections and delivers events to one or many of them.
// The session engine never touches websockets directly; it calls Hub.Send
// through its SendFn field.
type Hub struct {
	mu     sync.Mutex
	conns  map[uuid.UUID]*Conn
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		conns:  make(map[uuid.UUID]*Conn),
		logger: logger,
	}
}

// Register adds a connection and starts its write pump.
func (h *Hub) Register(ctx context.Context, ws *websocket.Conn, cancel context.CancelFunc) *Conn {
	conn := &Conn{
		ID:      uuid.New(),
		OutChan: make(chan game.Event, outChanSize),
		Cancel:  cancel,
	}
	h.mu.Lock()
	h.conns[conn.ID] = conn
	h.mu.Unlock()

	go h.writePump(ctx, ws, conn)
	return conn
}

// Unregister drops a connection from the hub.
func (h *Hub) Unregister(connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
}

// Send delivers an event to each listed connection, preserving per-connection
// emission order. Unknown ids (bots, already-departed sockets) are skipped.
func (h *Hub) Send(to []uuid.UUID, ev game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range to {
		if conn, ok := h.conns[id]; ok {
			conn.Write(ev, h.logger)
		}
	}
}

// writePump drains the outbound queue onto the socket until the context ends.
func (h *Hub) writePump(ctx context.Context, ws *websocket.Conn, conn *Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-conn.OutChan:
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Errorf("conn %s: marshal %s: %v", conn.ID, ev.Type, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = ws.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.logger.Warnf("conn %s: write failed: %v", conn.ID, err)
				return
			}
		}
	}
}
