// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes. These give clients a more specific reason
// for closure than the standard set.
const (
	// BadSubprotocolClose is sent when a client connects without negotiating
	// the game subprotocol.
	BadSubprotocolClose websocket.StatusCode = 3000
)
