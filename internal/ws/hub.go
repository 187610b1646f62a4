// Package ws streams committed document changes to WebSocket subscribers.
//
// A Hub fans events out to every client whose filter matches the event's
// document. Clients may subscribe to a single document or to all of them,
// and may ask for buffered events they missed while disconnected.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/metrics"
)

// Hub channel buffer sizes.
const (
	broadcastBuffer = 256
	registerBuffer  = 64
)

// Connection limits.
const (
	maxClients            = 1000
	maxClientsPerDocument = 50
)

// broadcast is sent through the broadcast channel to the Run goroutine.
type broadcast struct {
	documentID string
	msg        []byte
}

// Hub manages active WebSocket clients and broadcasts events.
// All client map mutations happen exclusively in the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	perDoc     map[string]int
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	shutdown   chan struct{} // signals Run to begin graceful drain
	done       chan struct{} // closed when Run has finished draining
	count      atomic.Int64
	seq        atomic.Uint64
	log        *logrus.Logger
	buffer     *EventBuffer
	now        func() time.Time
}

// NewHub creates a new Hub instance.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		perDoc:     make(map[string]int),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan broadcast, broadcastBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		buffer:     NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
		now:        time.Now,
	}
}

// drainTimeout is how long the hub waits for clients to flush after shutdown.
const drainTimeout = 3 * time.Second

// Run starts the hub event loop. It should be run as a goroutine.
// It exits when Shutdown is called or the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.drainClients()

			return
		case <-h.shutdown:
			h.drainClients()

			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			if h.clients[client] {
				h.remove(client)
			}
			h.log.WithField("total", len(h.clients)).Debug("feed.client_unregistered")

		case b := <-h.broadcast:
			for client := range h.clients {
				if client.matches(b.documentID) && !client.trySend(b.msg) {
					h.log.WithField("document_id", client.DocumentID).Warn("feed.slow_client_dropped")
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) add(client *Client) {
	if len(h.clients) >= maxClients {
		h.log.Warn("feed.connection_limit")
		client.closeSend()

		return
	}

	if client.DocumentID != "" && h.perDoc[client.DocumentID] >= maxClientsPerDocument {
		h.log.WithField("document_id", client.DocumentID).Warn("feed.document_connection_limit")
		client.closeSend()

		return
	}

	h.clients[client] = true
	h.perDoc[client.DocumentID]++
	h.setCount()
	h.log.WithField("total", len(h.clients)).Debug("feed.client_registered")
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	client.closeSend()

	h.perDoc[client.DocumentID]--
	if h.perDoc[client.DocumentID] <= 0 {
		delete(h.perDoc, client.DocumentID)
	}

	h.setCount()
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.FeedSubscribers.Set(float64(len(h.clients)))
}

// maxBroadcastPayload is the maximum allowed event payload size (64 KB).
const maxBroadcastPayload = 64 << 10

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("feed.register_full")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
		// Run loop already exited; client cleanup happened in Run shutdown.
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Publish assigns a sequence ID to an event, stores it for replay and queues
// it for every matching client. It never blocks: events are dropped when the
// broadcast queue is full or the payload is oversized.
func (h *Hub) Publish(eventType, documentID string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.log.WithError(err).WithField("type", eventType).Error("feed.marshal_failed")
		return
	}

	evt := Event{
		Type:       eventType,
		ID:         h.seq.Add(1),
		DocumentID: documentID,
		Data:       raw,
		Time:       h.now().UTC(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("feed.marshal_failed")
		return
	}

	if len(msg) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"document_id":  documentID,
			"payload_size": len(msg),
		}).Warn("feed.payload_dropped")
		return
	}

	h.buffer.Append(&evt)

	select {
	case h.broadcast <- broadcast{documentID: documentID, msg: msg}:
	default:
		h.log.Warn("feed.broadcast_full")
	}
}

// Shutdown initiates a graceful drain: sends a shutdown frame to every
// connected client, waits for their write pumps to flush, then closes all
// connections. It blocks until drain is complete or the timeout expires.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

// drainClients sends a shutdown frame to every client and waits for buffers to flush.
func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("feed.draining")

	shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
	for client := range h.clients {
		client.trySend(shutdownMsg)
	}

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond) //nolint:mnd // poll interval
	defer ticker.Stop()

wait:
	for {
		drained := true
		for client := range h.clients {
			if len(client.send) > 0 {
				drained = false

				break
			}
		}

		if drained {
			break
		}

		select {
		case <-deadline:
			h.log.Warn("feed.drain_timeout")

			break wait
		case <-ticker.C:
		}
	}

	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.perDoc = make(map[string]int)
	h.setCount()
}

// ReplayEvents sends buffered events after lastEventID that match the
// client's filter. Returns false if lastEventID is older than the buffer.
func (h *Hub) ReplayEvents(client *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID()
	if oldest > 0 && lastEventID > 0 && lastEventID < oldest-1 {
		return false
	}

	for _, evt := range h.buffer.Since(lastEventID, func(e *Event) bool { return client.matches(e.DocumentID) }) {
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		if !client.trySend(msg) {
			return true
		}
	}
	return true
}
