package chat

import (
	"time"

	"CrossChat/module/chat/model"
)

// Relay fans out ephemeral signals: typing indicators to room peers
// and presence changes process-wide. Nothing here is persisted,
// acknowledged, or retried.
type Relay struct {
	rooms *RoomIndex
	out   Outbound
}

func NewRelay(rooms *RoomIndex, out Outbound) *Relay {
	return &Relay{rooms: rooms, out: out}
}

// Typing forwards a typing:start/stop to everyone else in the room.
// There is no membership check here, mirroring the send/typing
// asymmetry clients already rely on; a stop with no prior start is
// relayed as-is and treated as a no-op by clients.
func (r *Relay) Typing(kind string, c *Client, chatID string) {
	if chatID == "" {
		return
	}
	r.out.ToRoomExcept(chatID, c.ConnID, BuildTyping(kind, chatID, c.UserID))
}

// PresenceChanged announces a flip to every connection. Presence is
// deliberately process-wide rather than room-scoped: contacts who
// share no room with the subject still see status.
func (r *Relay) PresenceChanged(userID string, status model.Status, lastSeen time.Time) {
	r.out.ToAll(BuildUserStatus(userID, status, lastSeen))
}

// ---- dispatch table adapters ----

type typingHandler struct {
	relay *Relay
	kind  string
}

func (h typingHandler) Type() string { return h.kind }
func (h typingHandler) Handle(_ *ChatContext, f *Frame, c *Client) error {
	h.relay.Typing(h.kind, c, f.ChatID)
	return nil
}
