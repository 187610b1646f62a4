package ws

import (
	"encoding/json"
	"time"
)

// Event is the structured message sent to feed subscribers.
type Event struct {
	Type       string          `json:"type"`
	ID         uint64          `json:"id"`
	DocumentID string          `json:"document_id"`
	Data       json.RawMessage `json:"data"`
	Time       time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client to reload state because the requested events
// have left the replay buffer.
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
