package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Encode marshals an action and payload into a wire message.
func Encode(action string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Action: action, Payload: payload})
}

// NewErrorMessage builds an error message for a single client.
func NewErrorMessage(text string) []byte {
	b, _ := Encode("error", map[string]string{"message": text})
	return b
}
