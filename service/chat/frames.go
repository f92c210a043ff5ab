package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"CrossChat/module/chat/model"
)

// Wire event vocabulary. Client and server exchange one JSON envelope
// with a type tag plus whichever fields that event carries.
const (
	EventTypingStart      = "typing:start"
	EventTypingStop       = "typing:stop"
	EventMessageSend      = "message:send"
	EventMessageNew       = "message:new"
	EventMessageSent      = "message:sent"
	EventMessageDelivered = "message:delivered"
	EventMessageRead      = "message:read"
	EventMessageStatus    = "message:status"
	EventUserStatus       = "user:status"
	EventError            = "error"
)

// Frame is the bidirectional wire envelope. Unused fields are omitted
// on the wire.
type Frame struct {
	Type      string         `json:"type"`
	ChatID    string         `json:"chatId,omitempty"`
	Content   string         `json:"content,omitempty"`
	MsgType   string         `json:"messageType,omitempty"`
	MediaURL  string         `json:"mediaUrl,omitempty"`
	TempID    string         `json:"tempId,omitempty"`    // client correlation token
	MessageID string         `json:"messageId,omitempty"` // server-assigned id
	Status    string         `json:"status,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	LastSeen  int64          `json:"lastSeen,omitempty"` // Unix ms
	Message   *model.Message `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Ts        int64          `json:"ts,omitempty"` // Unix ms, server stamped
}

// ParseFrame decodes an inbound client frame.
func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame missing type")
	}
	return f, nil
}

func (f *Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

func nowMS() int64 { return time.Now().UnixMilli() }

// ---- server-built frames ----

func BuildMessageNew(msg *model.Message) *Frame {
	return &Frame{Type: EventMessageNew, Message: msg, Ts: nowMS()}
}

func BuildMessageSent(tempID, messageID string) *Frame {
	return &Frame{Type: EventMessageSent, TempID: tempID, MessageID: messageID, Ts: nowMS()}
}

func BuildMessageStatus(messageID string, status model.DeliveryState, reader string) *Frame {
	return &Frame{
		Type:      EventMessageStatus,
		MessageID: messageID,
		Status:    string(status),
		UserID:    reader,
		Ts:        nowMS(),
	}
}

func BuildUserStatus(userID string, status model.Status, lastSeen time.Time) *Frame {
	f := &Frame{Type: EventUserStatus, UserID: userID, Status: string(status), Ts: nowMS()}
	if !lastSeen.IsZero() {
		f.LastSeen = lastSeen.UnixMilli()
	}
	return f
}

func BuildTyping(kind, chatID, userID string) *Frame {
	return &Frame{Type: kind, ChatID: chatID, UserID: userID, Ts: nowMS()}
}

func BuildError(msg string) *Frame {
	return &Frame{Type: EventError, Error: msg, Ts: nowMS()}
}
