package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	ws "github.com/axonhq/axonmail/internal/websocket"
)

// WebSocketHandler handles the /ws endpoint for the real-time change feed.
type WebSocketHandler struct {
	hub *ws.Hub
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. This server is expected to be used behind a
		// reverse proxy in a trusted environment.
		return true
	},
}

// Handle upgrades the HTTP connection to a WebSocket and registers it with
// the Hub. The connection then receives every mailbox change event until it
// closes.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocketHandler: failed to upgrade connection: %v", err)
		return
	}

	client := h.hub.Register(conn)
	if client == nil {
		log.Printf("WebSocketHandler: Connection rejected (max connections exceeded)")
		return
	}

	log.Printf("WebSocketHandler: WebSocket connection established (%d active)", h.hub.ActiveConnections())

	// Read loop to keep the connection open and detect disconnects.
	go h.readLoop(client)
}

// readLoop reads until the connection closes, then unregisters the client.
func (h *WebSocketHandler) readLoop(client *ws.Client) {
	conn := client.Conn()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.hub.Unregister(client)
}
