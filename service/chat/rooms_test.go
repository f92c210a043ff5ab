package chat

import (
	"sort"
	"testing"
)

func newTestClient(connID, userID string) *Client {
	return NewClient(connID, userID, nil, 8)
}

func connIDs(clients []*Client) []string {
	ids := make([]string, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.ConnID)
	}
	sort.Strings(ids)
	return ids
}

func TestRoomIndexJoinLeave(t *testing.T) {
	x := NewRoomIndex()
	a := newTestClient("c1", "alice")
	b := newTestClient("c2", "bob")

	x.Join(a, "r1")
	x.Join(b, "r1")
	x.Join(a, "r2")
	x.Join(a, "") // ignored

	got := connIDs(x.MembersOf("r1"))
	if len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("r1 members = %v", got)
	}
	got = connIDs(x.MembersExcept("r1", "c1"))
	if len(got) != 1 || got[0] != "c2" {
		t.Fatalf("r1 members except c1 = %v", got)
	}
	rooms := x.Rooms(a)
	sort.Strings(rooms)
	if len(rooms) != 2 || rooms[0] != "r1" || rooms[1] != "r2" {
		t.Fatalf("rooms of a = %v", rooms)
	}

	x.Leave(a, "r1")
	got = connIDs(x.MembersOf("r1"))
	if len(got) != 1 || got[0] != "c2" {
		t.Fatalf("after leave, r1 members = %v", got)
	}
	if rooms := x.Rooms(a); len(rooms) != 1 || rooms[0] != "r2" {
		t.Fatalf("after leave, rooms of a = %v", rooms)
	}
}

func TestRoomIndexLeaveAll(t *testing.T) {
	x := NewRoomIndex()
	a := newTestClient("c1", "alice")
	b := newTestClient("c2", "bob")
	x.Join(a, "r1")
	x.Join(a, "r2")
	x.Join(b, "r1")

	x.LeaveAll(a)

	if rooms := x.Rooms(a); rooms != nil {
		t.Fatalf("rooms of a after LeaveAll = %v", rooms)
	}
	if got := connIDs(x.MembersOf("r1")); len(got) != 1 || got[0] != "c2" {
		t.Fatalf("r1 members = %v", got)
	}
	if got := x.MembersOf("r2"); got != nil {
		t.Fatalf("empty room should vanish, got %v", got)
	}
	if !a.Closed() {
		t.Fatal("LeaveAll must mark the client closed")
	}
}

// A Join racing with disconnect cleanup must never re-add the
// connection once LeaveAll ran.
func TestRoomIndexJoinAfterLeaveAll(t *testing.T) {
	x := NewRoomIndex()
	a := newTestClient("c1", "alice")
	x.Join(a, "r1")
	x.LeaveAll(a)

	x.Join(a, "r1")
	x.Join(a, "r3")

	if got := x.MembersOf("r1"); got != nil {
		t.Fatalf("r1 members = %v, want none", got)
	}
	if got := x.MembersOf("r3"); got != nil {
		t.Fatalf("r3 members = %v, want none", got)
	}
	if rooms := x.Rooms(a); rooms != nil {
		t.Fatalf("rooms of a = %v, want none", rooms)
	}
}
