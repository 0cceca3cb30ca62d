package domain

// MessageDirection marks whether a transport message was sent or received.
type MessageDirection string

const (
	MessageIn  MessageDirection = "in"
	MessageOut MessageDirection = "out"
)

// Message is an inbound or outbound transport message as stored locally.
// Dedup identity is the wrap id first, then the client-assigned id, then the
// (direction, timestamp, content) composite.
type Message struct {
	WrapID    string           `json:"wrap_id,omitempty"`   // Transport wrap identifier
	ClientID  string           `json:"client_id,omitempty"` // Client-assigned id
	Direction MessageDirection `json:"direction"`
	Timestamp int64            `json:"timestamp"`
	Content   string           `json:"content"`
}
