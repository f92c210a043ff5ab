package model

// DeliveryState is the lifecycle stage of a message. It only ever
// moves forward: sent -> delivered -> read.
type DeliveryState string

const (
	StateSent      DeliveryState = "sent"
	StateDelivered DeliveryState = "delivered"
	StateRead      DeliveryState = "read"
)

// MsgTypeText is the default message type when the client omits one.
const MsgTypeText = "text"

func (s DeliveryState) Valid() bool {
	switch s {
	case StateSent, StateDelivered, StateRead:
		return true
	}
	return false
}

func (s DeliveryState) rank() int {
	switch s {
	case StateSent:
		return 0
	case StateDelivered:
		return 1
	case StateRead:
		return 2
	}
	return -1
}

// Advance returns the state after applying a transition toward `to`.
// Regressions and repeats are absorbed: the result is always the
// highest state reached, and advanced reports whether anything moved.
func (s DeliveryState) Advance(to DeliveryState) (next DeliveryState, advanced bool) {
	if !to.Valid() || to.rank() <= s.rank() {
		return s, false
	}
	return to, true
}

// ReadReceipt records one recipient's read position on a message.
type ReadReceipt struct {
	UserID string `bson:"user_id" json:"userId"`
	ReadAt int64  `bson:"read_at" json:"readAt"` // Unix ms
}

// Message is one persisted chat message.
type Message struct {
	ID        string        `bson:"_id" json:"id"`
	ChatID    string        `bson:"chat_id" json:"chatId"`
	SenderID  string        `bson:"sender_id" json:"senderId"`
	Type      string        `bson:"msg_type" json:"messageType"` // text/image/...
	Content   string        `bson:"content" json:"content"`
	MediaURL  string        `bson:"media_url" json:"mediaUrl"`
	Status    DeliveryState `bson:"status" json:"status"`
	ReadBy    []ReadReceipt `bson:"read_by" json:"readBy"`
	CreatedAt int64         `bson:"create_time" json:"createdAt"` // Unix ms
}

// HasRead reports whether user already has a receipt on the message.
// The sender never appears in ReadBy.
func (m *Message) HasRead(user string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == user {
			return true
		}
	}
	return false
}

// AddReceipt appends a receipt unless user is the sender or already
// recorded. Reports whether anything was added.
func (m *Message) AddReceipt(user string, at int64) bool {
	if user == m.SenderID || m.HasRead(user) {
		return false
	}
	m.ReadBy = append(m.ReadBy, ReadReceipt{UserID: user, ReadAt: at})
	return true
}
