// Package hub fans websocket messages out to connected clients.
package hub

// MessageType indicates the websocket frame type.
type MessageType int

const (
	// TextMessage is a JSON-encoded message.
	TextMessage MessageType = iota
	// BinaryMessage is raw binary data such as a JPEG preview frame.
	BinaryMessage
)

// Message is one frame to deliver.
type Message struct {
	Type MessageType
	Data []byte
}

// Text wraps pre-encoded JSON.
func Text(data []byte) Message {
	return Message{Type: TextMessage, Data: data}
}

// Binary wraps raw bytes.
func Binary(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
