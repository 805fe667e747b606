// Package hub provides a websocket broadcast hub
// using a channel-based fan-out.
package hub

import "encoding/json"

// Message is a pre-encoded text frame broadcast to every client.
type Message struct {
	Data []byte
}

// NewJSONMessage encodes v as a message.
func NewJSONMessage(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Data: data}, nil
}
