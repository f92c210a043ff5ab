package chat

import (
	"sync"
)

// RoomIndex maps room ids to the member connections currently live on
// this gateway. Persistent membership lives in storage; the index is
// rebuilt from it on every connect, so an empty room simply vanishes
// until a member reconnects.
type RoomIndex struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client // room -> conn_id -> client
	conns map[string]map[string]bool    // conn_id -> room set
}

func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		rooms: make(map[string]map[string]*Client),
		conns: make(map[string]map[string]bool),
	}
}

// Join adds the connection to a room. Joining after LeaveAll is a
// no-op: the client's closed flag is checked under the same lock
// LeaveAll sets it, so cleanup can never leave a dangling member.
func (x *RoomIndex) Join(c *Client, room string) {
	if room == "" {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if c.closed.Load() {
		return
	}
	m := x.rooms[room]
	if m == nil {
		m = make(map[string]*Client)
		x.rooms[room] = m
	}
	m[c.ConnID] = c
	set := x.conns[c.ConnID]
	if set == nil {
		set = make(map[string]bool)
		x.conns[c.ConnID] = set
	}
	set[room] = true
}

func (x *RoomIndex) Leave(c *Client, room string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.leaveLocked(c.ConnID, room)
}

func (x *RoomIndex) leaveLocked(connID, room string) {
	if m := x.rooms[room]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(x.rooms, room)
		}
	}
	if set := x.conns[connID]; set != nil {
		delete(set, room)
		if len(set) == 0 {
			delete(x.conns, connID)
		}
	}
}

// LeaveAll removes the connection from every room and marks it closed
// in the same critical section, so it is atomic with respect to
// concurrent Join calls for the same connection.
func (x *RoomIndex) LeaveAll(c *Client) {
	x.mu.Lock()
	defer x.mu.Unlock()
	c.closed.Store(true)
	for room := range x.conns[c.ConnID] {
		if m := x.rooms[room]; m != nil {
			delete(m, c.ConnID)
			if len(m) == 0 {
				delete(x.rooms, room)
			}
		}
	}
	delete(x.conns, c.ConnID)
}

// MembersOf snapshots the live member connections of a room.
func (x *RoomIndex) MembersOf(room string) []*Client {
	x.mu.RLock()
	defer x.mu.RUnlock()
	m := x.rooms[room]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// MembersExcept snapshots a room's members minus one connection
// (typing relays exclude the sending connection).
func (x *RoomIndex) MembersExcept(room, connID string) []*Client {
	x.mu.RLock()
	defer x.mu.RUnlock()
	m := x.rooms[room]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for id, c := range m {
		if id == connID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Rooms lists the rooms a connection has joined.
func (x *RoomIndex) Rooms(c *Client) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	set := x.conns[c.ConnID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for room := range set {
		out = append(out, room)
	}
	return out
}
