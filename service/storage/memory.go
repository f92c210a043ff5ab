package storage

import (
	"context"
	"sync"
	"time"

	"CrossChat/module/chat/model"
	"CrossChat/tools/ids"
)

// Memory is an in-process Storage used by tests and by standalone
// runs without a database. Same semantics as the Mongo variant.
type Memory struct {
	mu       sync.RWMutex
	rooms    map[string]*model.Room
	messages map[string]*model.Message
}

func NewMemory() *Memory {
	return &Memory{
		rooms:    make(map[string]*model.Room),
		messages: make(map[string]*model.Message),
	}
}

// AddRoom seeds a room. Membership is fixed once added.
func (m *Memory) AddRoom(r *model.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = ids.GenerateString()
	}
	m.rooms[r.ID] = r
}

func (m *Memory) FindRoomsForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for id, r := range m.rooms {
		if r.HasParticipant(userID) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *Memory) IsRoomMember(_ context.Context, userID, roomID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return false, nil
	}
	return r.HasParticipant(userID), nil
}

func (m *Memory) SaveMessage(_ context.Context, msg *model.Message) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	if cp.ID == "" {
		cp.ID = ids.GenerateString()
	}
	if cp.Status == "" {
		cp.Status = model.StateSent
	}
	if cp.CreatedAt == 0 {
		cp.CreatedAt = time.Now().UnixMilli()
	}
	m.messages[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) UpdateRoomLastMessage(_ context.Context, roomID, messageID string, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	r.LastMessageID = messageID
	r.LastMessageAt = at
	return nil
}

func (m *Memory) UpdateMessageState(_ context.Context, messageID string, state model.DeliveryState, reader string) (*model.Message, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, false, ErrMessageNotFound
	}
	next, advanced := msg.Status.Advance(state)
	msg.Status = next
	added := false
	if reader != "" {
		added = msg.AddReceipt(reader, time.Now().UnixMilli())
	}
	cp := *msg
	cp.ReadBy = append([]model.ReadReceipt(nil), msg.ReadBy...)
	return &cp, advanced || added, nil
}

// GetRoom is a test helper.
func (m *Memory) GetRoom(id string) (*model.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// GetMessage is a test helper.
func (m *Memory) GetMessage(id string) (*model.Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, false
	}
	cp := *msg
	return &cp, true
}

// MessageCount is a test helper.
func (m *Memory) MessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}
