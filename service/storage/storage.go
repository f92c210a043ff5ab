package storage

import (
	"context"

	"CrossChat/module/chat/model"
	"CrossChat/tools/errs"
)

// Typed failures surfaced to the engine. They map onto the scoped
// error events sent back to the originating connection.
var (
	ErrMessageNotFound = errs.New("message not found")
	ErrRoomNotFound    = errs.New("room not found")
)

// Storage is the persistence boundary of the realtime engine. The
// engine never touches a database directly; everything goes through
// this interface so tests can run against the in-memory variant.
type Storage interface {
	// FindRoomsForUser returns the ids of every room the user belongs to.
	FindRoomsForUser(ctx context.Context, userID string) ([]string, error)

	// IsRoomMember checks membership against persisted state, not the
	// live room index: authorization is independent of presence.
	IsRoomMember(ctx context.Context, userID, roomID string) (bool, error)

	// SaveMessage persists a new message and returns it with the
	// server-assigned id filled in.
	SaveMessage(ctx context.Context, msg *model.Message) (*model.Message, error)

	// UpdateRoomLastMessage moves the room's last-message pointer.
	UpdateRoomLastMessage(ctx context.Context, roomID, messageID string, at int64) error

	// UpdateMessageState applies a forward-only state transition and,
	// for reads, records the reader's receipt. changed is false when the
	// acknowledgment was a no-op (repeat or regression), in which case
	// nothing should be broadcast. Returns ErrMessageNotFound for an
	// unknown id.
	UpdateMessageState(ctx context.Context, messageID string, state model.DeliveryState, reader string) (msg *model.Message, changed bool, err error)
}
