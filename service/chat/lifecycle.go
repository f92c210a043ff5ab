package chat

import (
	"context"
	"strings"
	"time"

	"CrossChat/logger"
	"CrossChat/module/chat/model"
	"CrossChat/service/storage"
	"CrossChat/tools/errs"

	"github.com/pkg/errors"
)

// Lifecycle coordinates a message from validated send through the
// delivered/read acknowledgments. Persist always happens before
// broadcast; a failed persist means nothing goes out.
type Lifecycle struct {
	store storage.Storage
	out   Outbound
}

func NewLifecycle(store storage.Storage, out Outbound) *Lifecycle {
	return &Lifecycle{store: store, out: out}
}

// Send validates and persists a new message, then fans it out to the
// room and confirms back to the sender with the correlation token.
func (l *Lifecycle) Send(ctx context.Context, c *Client, f *Frame) error {
	content := strings.TrimSpace(f.Content)
	if content == "" && f.MediaURL == "" {
		return errs.ErrEmptyMessage
	}

	// Authorization runs against persisted membership, not the live
	// room index: being offline does not revoke the right to post.
	ok, err := l.store.IsRoomMember(ctx, c.UserID, f.ChatID)
	if err != nil {
		return errs.ErrPersistence.WithDetail(err.Error())
	}
	if !ok {
		return errs.ErrAuthorization
	}

	msgType := f.MsgType
	if msgType == "" {
		msgType = model.MsgTypeText
	}
	msg := &model.Message{
		ChatID:    f.ChatID,
		SenderID:  c.UserID,
		Type:      msgType,
		Content:   content,
		MediaURL:  f.MediaURL,
		Status:    model.StateSent,
		CreatedAt: time.Now().UnixMilli(),
	}

	saved, err := l.store.SaveMessage(ctx, msg)
	if err != nil {
		return errs.ErrPersistence.WithDetail(err.Error())
	}
	if err := l.store.UpdateRoomLastMessage(ctx, saved.ChatID, saved.ID, saved.CreatedAt); err != nil {
		// The message itself is safe; only the room pointer lagged.
		logger.Warnf("[lifecycle] update last message chat=%s msg=%s err=%v", saved.ChatID, saved.ID, err)
	}

	l.out.ToRoom(saved.ChatID, BuildMessageNew(saved))
	l.out.ToClient(c, BuildMessageSent(f.TempID, saved.ID))
	return nil
}

// Delivered handles a delivery acknowledgment. Repeats and late acks
// on an already-read message are no-ops with no broadcast.
func (l *Lifecycle) Delivered(ctx context.Context, c *Client, f *Frame) error {
	if f.MessageID == "" {
		return errs.ErrNotFound
	}
	msg, changed, err := l.store.UpdateMessageState(ctx, f.MessageID, model.StateDelivered, "")
	if err != nil {
		return l.ackError(err)
	}
	if changed {
		l.out.ToRoom(msg.ChatID, BuildMessageStatus(msg.ID, msg.Status, ""))
	}
	return nil
}

// Read handles a read acknowledgment from c's user: records the
// receipt (never for the sender), advances the state, and tells the
// room who read it so group clients can render per-recipient receipts.
func (l *Lifecycle) Read(ctx context.Context, c *Client, f *Frame) error {
	if f.MessageID == "" {
		return errs.ErrNotFound
	}
	msg, changed, err := l.store.UpdateMessageState(ctx, f.MessageID, model.StateRead, c.UserID)
	if err != nil {
		return l.ackError(err)
	}
	if changed {
		l.out.ToRoom(msg.ChatID, BuildMessageStatus(msg.ID, msg.Status, c.UserID))
	}
	return nil
}

func (l *Lifecycle) ackError(err error) error {
	if errors.Is(err, storage.ErrMessageNotFound) {
		return errs.ErrNotFound
	}
	return errs.ErrPersistence.WithDetail(err.Error())
}

// ---- dispatch table adapters ----

type sendHandler struct{ lc *Lifecycle }

func (h sendHandler) Type() string { return EventMessageSend }
func (h sendHandler) Handle(ctx *ChatContext, f *Frame, c *Client) error {
	return h.lc.Send(ctx.Ctx, c, f)
}

type deliveredHandler struct{ lc *Lifecycle }

func (h deliveredHandler) Type() string { return EventMessageDelivered }
func (h deliveredHandler) Handle(ctx *ChatContext, f *Frame, c *Client) error {
	return h.lc.Delivered(ctx.Ctx, c, f)
}

type readHandler struct{ lc *Lifecycle }

func (h readHandler) Type() string { return EventMessageRead }
func (h readHandler) Handle(ctx *ChatContext, f *Frame, c *Client) error {
	return h.lc.Read(ctx.Ctx, c, f)
}
