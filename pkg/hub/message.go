// Package hub fans messages out to websocket clients. One goroutine owns the
// client set; each client has its own writer goroutine.
package hub

// MessageType selects the websocket frame type
type MessageType int

const (
	// TextMessage carries JSON
	TextMessage MessageType = iota
	// BinaryMessage carries raw bytes such as JPEG frames
	BinaryMessage
)

// String implements fmt.Stringer
func (t MessageType) String() string {
	if t == BinaryMessage {
		return "binary"
	}
	return "text"
}

// Message is one broadcast payload
type Message struct {
	Type MessageType
	Data []byte
}

// NewTextMessage wraps pre-encoded JSON
func NewTextMessage(data []byte) Message {
	return Message{Type: TextMessage, Data: data}
}

// NewBinaryMessage wraps binary data
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
