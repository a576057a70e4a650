// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxNameLen = 32

// ClientMessage is the inbound wire shape. Type selects the event; the other
// fields are populated per event. Pointer fields distinguish "absent" from
// zero for indices.
type ClientMessage struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`   // CheckIn
	Room   string `json:"room,omitempty"`   // CheckIn
	Text   string `json:"text,omitempty"`   // Message_Send
	State  string `json:"state,omitempty"`  // PlayerReadyStateChange: "Ready" | "Cancel"
	Choice *int   `json:"choice,omitempty"` // PlayerCardChoice: 0..2
	Vote   *int   `json:"vote,omitempty"`   // Player_Vote: seat index
}

// WSHandler upgrades the connection, registers it with the hub under a fresh
// identity, and runs the read loop until the socket closes. Socket closure is
// the disconnect notification: cleanup frees the seat and waiting-list entry.
func WSHandler(logger *logrus.Logger, srv *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"knavery"},
			OriginPatterns: []string{"*"}, // Tighten for production deployments.
		})
		if err != nil {
			logger.Warnf("websocket accept: %v", err)
			return
		}
		defer ws.Close(websocket.StatusInternalError, "handler exit")

		if ws.Subprotocol() != "knavery" {
			ws.Close(BadSubprotocolClose, "client must speak the 'knavery' subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := srv.Hub.Register(ctx, ws, cancel)
		logger.Infof("conn %s established from %s", conn.ID, r.RemoteAddr)

		readMessages(ctx, ws, conn.ID, srv, logger)

		srv.dropConnection(conn.ID)
		logger.Infof("conn %s cleaned up", conn.ID)
	}
}

// readMessages decodes and routes inbound events until the connection ends.
// Malformed or out-of-place messages degrade to logged no-ops.
func readMessages(ctx context.Context, ws *websocket.Conn, connID uuid.UUID, srv *GameServer, logger *logrus.Logger) {
	for {
		msgType, data, err := ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("conn %s closed normally", connID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("conn %s read: %v", connID, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("conn %s: invalid JSON: %v", connID, err)
			continue
		}

		logger.Debugf("conn %s: %s", connID, msg.Type)
		dispatch(connID, msg, srv, logger)
	}
}

// dispatch routes one inbound event. Events that need a seat resolve it
// through the registry; a missing or stale binding is a silent no-op.
func dispatch(connID uuid.UUID, msg ClientMessage, srv *GameServer, logger *logrus.Logger) {
	switch msg.Type {
	case "CheckIn":
		name := clampName(msg.Name)
		room := strings.TrimSpace(msg.Room)
		if name == "" || room == "" {
			return
		}
		srv.checkIn(connID, name, room)

	case "Message_Send":
		if msg.Text == "" {
			return
		}
		if ref, ok := srv.Registry.Lookup(connID); ok {
			ref.Session.Chat(connID, msg.Text)
		}

	case "PlayerReadyStateChange":
		if ref, ok := srv.Registry.Lookup(connID); ok {
			ref.Session.HandleReady(connID, msg.State == "Ready")
		}

	case "PlayerCardChoice":
		if msg.Choice == nil {
			return
		}
		if ref, ok := srv.Registry.Lookup(connID); ok {
			ref.Session.HandleCardChoice(connID, *msg.Choice)
		}

	case "Player_Vote":
		if msg.Vote == nil {
			return
		}
		if ref, ok := srv.Registry.Lookup(connID); ok {
			ref.Session.HandleVote(connID, *msg.Vote)
		}

	case "RequestBots":
		if ref, ok := srv.Registry.Lookup(connID); ok {
			ref.Session.FillWithBots()
		}

	default:
		logger.Warnf("conn %s: unknown event type %q", connID, msg.Type)
	}
}

// clampName trims and bounds a display name. Markup stripping is the
// responsibility of the boundary in front of this service.
func clampName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}
