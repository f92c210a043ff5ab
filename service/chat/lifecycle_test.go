package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"CrossChat/module/chat/model"
	"CrossChat/service/storage"
	"CrossChat/tools/errs"
)

// outRecorder captures everything a coordinator emits, in place of the
// fanout-backed Server.
type outRecorder struct {
	mu     sync.Mutex
	room   []recordedSend
	except []recordedSend
	all    []*Frame
	direct []recordedSend
}

type recordedSend struct {
	room string
	conn string
	f    *Frame
}

func (r *outRecorder) ToRoom(roomID string, f *Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room = append(r.room, recordedSend{room: roomID, f: f})
}

func (r *outRecorder) ToRoomExcept(roomID, connID string, f *Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.except = append(r.except, recordedSend{room: roomID, conn: connID, f: f})
}

func (r *outRecorder) ToAll(f *Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, f)
}

func (r *outRecorder) ToClient(c *Client, f *Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct = append(r.direct, recordedSend{conn: c.ConnID, f: f})
}

func newLifecycleFixture() (*Lifecycle, *storage.Memory, *outRecorder) {
	mem := storage.NewMemory()
	mem.AddRoom(&model.Room{ID: "r1", Participants: []string{"alice", "bob", "carol"}, IsGroup: true})
	rec := &outRecorder{}
	return NewLifecycle(mem, rec), mem, rec
}

func TestSendPersistsThenBroadcasts(t *testing.T) {
	lc, mem, rec := newLifecycleFixture()
	ctx := context.Background()
	alice := newTestClient("c1", "alice")

	err := lc.Send(ctx, alice, &Frame{Type: EventMessageSend, ChatID: "r1", Content: "  hi there  ", TempID: "tmp-42"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(rec.room) != 1 {
		t.Fatalf("room broadcasts = %d, want 1", len(rec.room))
	}
	bcast := rec.room[0]
	if bcast.room != "r1" || bcast.f.Type != EventMessageNew || bcast.f.Message == nil {
		t.Fatalf("unexpected broadcast: %+v", bcast)
	}
	msg := bcast.f.Message
	if msg.Content != "hi there" {
		t.Fatalf("content not trimmed: %q", msg.Content)
	}
	if msg.SenderID != "alice" || msg.Status != model.StateSent || msg.Type != model.MsgTypeText {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.ID == "" {
		t.Fatal("message id not assigned")
	}

	if len(rec.direct) != 1 {
		t.Fatalf("sender confirms = %d, want 1", len(rec.direct))
	}
	conf := rec.direct[0]
	if conf.conn != "c1" || conf.f.Type != EventMessageSent || conf.f.TempID != "tmp-42" || conf.f.MessageID != msg.ID {
		t.Fatalf("unexpected confirm: %+v", conf.f)
	}

	// the persisted copy and the room pointer agree with the broadcast
	stored, ok := mem.GetMessage(msg.ID)
	if !ok || stored.Content != "hi there" {
		t.Fatalf("message not persisted: %v %v", stored, ok)
	}
	room, _ := mem.GetRoom("r1")
	if room.LastMessageID != msg.ID || room.LastMessageAt != msg.CreatedAt {
		t.Fatalf("room last message not updated: %+v", room)
	}
}

func TestSendRejectsNonMember(t *testing.T) {
	lc, mem, rec := newLifecycleFixture()
	mallory := newTestClient("c9", "mallory")

	err := lc.Send(context.Background(), mallory, &Frame{Type: EventMessageSend, ChatID: "r1", Content: "let me in"})
	if !errors.Is(err, errs.ErrAuthorization) {
		t.Fatalf("err = %v, want authorization error", err)
	}
	if mem.MessageCount() != 0 {
		t.Fatal("rejected send must not persist")
	}
	if len(rec.room) != 0 || len(rec.direct) != 0 {
		t.Fatal("rejected send must not broadcast")
	}
}

func TestSendRejectsEmptyContent(t *testing.T) {
	lc, mem, _ := newLifecycleFixture()
	alice := newTestClient("c1", "alice")

	err := lc.Send(context.Background(), alice, &Frame{Type: EventMessageSend, ChatID: "r1", Content: "   "})
	if !errors.Is(err, errs.ErrEmptyMessage) {
		t.Fatalf("err = %v, want empty message error", err)
	}
	if mem.MessageCount() != 0 {
		t.Fatal("empty send must not persist")
	}

	// media with no text is a valid message
	err = lc.Send(context.Background(), alice, &Frame{
		Type: EventMessageSend, ChatID: "r1", MediaURL: "https://cdn.example/p.png", MsgType: "image",
	})
	if err != nil {
		t.Fatalf("media-only send: %v", err)
	}
	if mem.MessageCount() != 1 {
		t.Fatal("media-only send must persist")
	}
}

func TestDeliveredIdempotent(t *testing.T) {
	lc, mem, rec := newLifecycleFixture()
	ctx := context.Background()
	alice := newTestClient("c1", "alice")
	bob := newTestClient("c2", "bob")

	if err := lc.Send(ctx, alice, &Frame{ChatID: "r1", Content: "hi", TempID: "t1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	id := rec.room[0].f.Message.ID

	if err := lc.Delivered(ctx, bob, &Frame{MessageID: id}); err != nil {
		t.Fatalf("delivered: %v", err)
	}
	if len(rec.room) != 2 {
		t.Fatalf("broadcasts = %d, want message:new + one status", len(rec.room))
	}
	st := rec.room[1].f
	if st.Type != EventMessageStatus || st.MessageID != id || st.Status != string(model.StateDelivered) {
		t.Fatalf("unexpected status frame: %+v", st)
	}

	// second ack: state unchanged, nothing broadcast
	if err := lc.Delivered(ctx, bob, &Frame{MessageID: id}); err != nil {
		t.Fatalf("repeat delivered: %v", err)
	}
	if len(rec.room) != 2 {
		t.Fatal("repeated ack must not broadcast")
	}

	stored, _ := mem.GetMessage(id)
	if stored.Status != model.StateDelivered {
		t.Fatalf("status = %s", stored.Status)
	}
}

func TestReadRecordsReceiptAndNeverRegresses(t *testing.T) {
	lc, mem, rec := newLifecycleFixture()
	ctx := context.Background()
	alice := newTestClient("c1", "alice")
	bob := newTestClient("c2", "bob")
	carol := newTestClient("c3", "carol")

	if err := lc.Send(ctx, alice, &Frame{ChatID: "r1", Content: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	id := rec.room[0].f.Message.ID

	// read without a prior delivered ack still lands
	if err := lc.Read(ctx, bob, &Frame{MessageID: id}); err != nil {
		t.Fatalf("read: %v", err)
	}
	st := rec.room[1].f
	if st.Status != string(model.StateRead) || st.UserID != "bob" {
		t.Fatalf("unexpected status frame: %+v", st)
	}

	// a second distinct reader adds a receipt and broadcasts again
	if err := lc.Read(ctx, carol, &Frame{MessageID: id}); err != nil {
		t.Fatalf("read carol: %v", err)
	}
	if len(rec.room) != 3 {
		t.Fatalf("broadcasts = %d, want 3", len(rec.room))
	}

	// repeats and sender self-reads are silent
	if err := lc.Read(ctx, bob, &Frame{MessageID: id}); err != nil {
		t.Fatalf("repeat read: %v", err)
	}
	if err := lc.Read(ctx, alice, &Frame{MessageID: id}); err != nil {
		t.Fatalf("sender read: %v", err)
	}
	if len(rec.room) != 3 {
		t.Fatal("repeat/self read must not broadcast")
	}

	// late delivered ack after read is absorbed
	if err := lc.Delivered(ctx, bob, &Frame{MessageID: id}); err != nil {
		t.Fatalf("late delivered: %v", err)
	}
	stored, _ := mem.GetMessage(id)
	if stored.Status != model.StateRead {
		t.Fatalf("state regressed to %s", stored.Status)
	}
	if len(stored.ReadBy) != 2 {
		t.Fatalf("receipts = %+v, want bob and carol", stored.ReadBy)
	}
}

func TestAckUnknownMessage(t *testing.T) {
	lc, _, rec := newLifecycleFixture()
	bob := newTestClient("c2", "bob")

	err := lc.Delivered(context.Background(), bob, &Frame{MessageID: "nope"})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("delivered err = %v, want not found", err)
	}
	err = lc.Read(context.Background(), bob, &Frame{MessageID: ""})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("read err = %v, want not found", err)
	}
	if len(rec.room) != 0 {
		t.Fatal("failed acks must not broadcast")
	}
}
