package chat

import (
	"sync"
	"testing"
	"time"
)

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case p := <-c.Send:
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestFanoutDeliversToEveryMember(t *testing.T) {
	f := NewFanout(2, 8, nil)
	defer f.Close()

	a := newTestClient("c1", "alice")
	b := newTestClient("c2", "bob")
	f.Broadcast([]*Client{a, b}, []byte("hello"))
	f.Close() // waits for the workers to finish the job

	for _, c := range []*Client{a, b} {
		got := drain(c)
		if len(got) != 1 || string(got[0]) != "hello" {
			t.Fatalf("%s received %q", c.ConnID, got)
		}
	}
}

// A member with a full queue is handed to onSlow; the rest of the room
// still gets the payload.
func TestFanoutHandsSlowClientsOver(t *testing.T) {
	var mu sync.Mutex
	var slow []string
	f := NewFanout(1, 8, func(c *Client) {
		mu.Lock()
		slow = append(slow, c.ConnID)
		mu.Unlock()
	})

	fast := newTestClient("fast", "alice")
	stuck := NewClient("stuck", "bob", nil, 1)
	stuck.Send <- []byte("wedged") // queue now full

	f.Broadcast([]*Client{stuck, fast}, []byte("hello"))
	f.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(slow) != 1 || slow[0] != "stuck" {
		t.Fatalf("slow = %v, want [stuck]", slow)
	}
	if got := drain(fast); len(got) != 1 || string(got[0]) != "hello" {
		t.Fatalf("fast client received %q", got)
	}
}

// A closed client is skipped silently: it is already on its way out, so
// punishing it again is pointless.
func TestFanoutSkipsClosedClients(t *testing.T) {
	called := make(chan struct{}, 1)
	f := NewFanout(1, 8, func(*Client) { called <- struct{}{} })

	gone := NewClient("gone", "alice", nil, 1)
	gone.Send <- []byte("wedged")
	gone.closed.Store(true)

	f.Broadcast([]*Client{gone}, []byte("hello"))
	f.Close()

	select {
	case <-called:
		t.Fatal("onSlow must not fire for a closed client")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEnqueueAfterChannelClose(t *testing.T) {
	c := newTestClient("c1", "alice")
	close(c.Send)
	// the closed flag may lag the channel close; Enqueue must absorb it
	if c.Enqueue([]byte("late")) {
		t.Fatal("enqueue on a closed channel must report false")
	}
}
