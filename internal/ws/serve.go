package ws

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// Serve upgrades the request to a WebSocket, registers a client subscribed
// to documentID (all documents when empty) and blocks until the connection
// ends or appCtx is cancelled. originPatterns restricts cross-origin
// upgrades; same-origin requests are always accepted.
func (h *Hub) Serve(appCtx context.Context, w http.ResponseWriter, r *http.Request, documentID string, originPatterns []string) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:       originPatterns,
		CompressionMode:      websocket.CompressionContextTakeover,
		CompressionThreshold: 128,
	})
	if err != nil {
		return fmt.Errorf("websocket accept: %w", err)
	}

	client := NewClient(h, conn, documentID)
	h.Register(client)

	// Cancel when either the server shuts down or the request ends.
	ctx, cancel := context.WithCancel(appCtx)
	defer cancel()

	go func() {
		select {
		case <-r.Context().Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	go client.WritePump(ctx)
	client.ReadPump(ctx)

	return nil
}
