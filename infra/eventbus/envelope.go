package eventbus

import "encoding/json"

// envelope wraps an event on the wire so consumers can pick its constructor.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
