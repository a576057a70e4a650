// internal/models/profile.go
package models

import "github.com/google/uuid"

// PlayerProfile tracks a connection-level identity as seen by the transport
// boundary: the stable per-socket id, the display name supplied at check-in,
// and the room code the player asked to join. Synthetic players carry the
// same shape with IsBot set and no live connection behind the id.
type PlayerProfile struct {
	ConnID   uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	RoomCode string    `json:"roomCode"`
	IsBot    bool      `json:"isBot,omitempty"`
}
