// internal/handlers/server.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jordwess/knavery/internal/database"
	"github.com/jordwess/knavery/internal/game"
	"github.com/jordwess/knavery/internal/history"
	"github.com/jordwess/knavery/internal/models"
)

// GameServer wires the session engine to the transport: the connection hub,
// the registry and match queue, the check-in profile table, and the optional
// match-history sinks.
type GameServer struct {
	Logger   *logrus.Logger
	Hub      *Hub
	Registry *game.SessionRegistry
	Queue    *game.MatchQueue

	mu       sync.Mutex
	profiles map[uuid.UUID]*models.PlayerProfile
}

func NewGameServer(logger *logrus.Logger) *GameServer {
	registry := game.NewSessionRegistry()
	srv := &GameServer{
		Logger:   logger,
		Hub:      NewHub(logger),
		Registry: registry,
		Queue:    game.NewMatchQueue(registry),
		profiles: make(map[uuid.UUID]*models.PlayerProfile),
	}
	srv.Queue.SessionFactory = srv.newSession
	return srv
}

// newSession builds a session with its callbacks wired into the server.
func (srv *GameServer) newSession(roomCode string) *game.Session {
	s := game.NewSession(roomCode)
	s.SendFn = srv.Hub.Send
	s.OnClose = srv.handleSessionClose
	s.OnResult = srv.recordResult
	srv.Registry.AddSession(s)
	srv.Logger.Infof("session %s created for room %q", s.ID, roomCode)
	return s
}

// handleSessionClose releases every seat binding and forgets the session.
// Invoked by the session outside its own lock.
func (srv *GameServer) handleSessionClose(s *game.Session, occupants []uuid.UUID) {
	for _, connID := range occupants {
		srv.Registry.Unbind(connID)
	}
	srv.Registry.RemoveSession(s.ID)
	srv.Queue.ForgetSession(s.RoomCode, s.ID)
	srv.Logger.Infof("session %s removed (room %q)", s.ID, s.RoomCode)
}

// recordResult forwards a finished match to whichever sinks are configured.
// Runs on its own goroutine; sink failures are logged, never surfaced.
func (srv *GameServer) recordResult(res game.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if history.Enabled() {
		if err := history.PublishMatchResult(ctx, res); err != nil {
			srv.Logger.Warnf("history publish for session %s: %v", res.SessionID, err)
		}
	}
	if database.DB != nil {
		if err := database.InsertMatchResult(ctx, res); err != nil {
			srv.Logger.Warnf("db insert for session %s: %v", res.SessionID, err)
		}
	}
}

// checkIn records the identity's profile and routes it toward a seat.
func (srv *GameServer) checkIn(connID uuid.UUID, name, roomCode string) {
	profile := &models.PlayerProfile{ConnID: connID, Name: name, RoomCode: roomCode}
	srv.mu.Lock()
	srv.profiles[connID] = profile
	srv.mu.Unlock()

	srv.Queue.Join(roomCode, &game.Occupant{ConnID: connID, Name: name})
}

func (srv *GameServer) profile(connID uuid.UUID) (*models.PlayerProfile, bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	p, ok := srv.profiles[connID]
	return p, ok
}

// dropConnection runs full disconnect cleanup for an identity: vacate its
// seat if it has one, leave any waiting list, and forget the profile.
func (srv *GameServer) dropConnection(connID uuid.UUID) {
	if ref, ok := srv.Registry.Lookup(connID); ok {
		ref.Session.HandleDisconnect(connID)
		srv.Registry.Unbind(connID)
	}
	if p, ok := srv.profile(connID); ok {
		srv.Queue.Leave(p.RoomCode, connID)
	}
	srv.mu.Lock()
	delete(srv.profiles, connID)
	srv.mu.Unlock()
	srv.Hub.Unregister(connID)
}
