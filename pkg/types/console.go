package types

import "time"

// Console stream frames (server -> client). Type is "notice", "update" or
// "pong".
type ServerMessage struct {
	Type    string  `json:"type"`
	Notice  *Notice `json:"notice,omitempty"`
	Key     string  `json:"key,omitempty"`
	Version uint64  `json:"version,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// ClientMessage is what a console client may send: only "ping" for now.
type ClientMessage struct {
	Type string `json:"type"`
}

type Notice struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
	ExpiresAt time.Time `json:"expires_at"`
}
