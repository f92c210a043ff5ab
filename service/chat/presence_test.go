package chat

import (
	"sync"
	"sync/atomic"
	"testing"

	"CrossChat/module/chat/model"
)

func TestPresenceFlipsOnEdgesOnly(t *testing.T) {
	p := NewPresenceRegistry()

	st, flipped := p.ConnectionOpened("u1")
	if st != model.StatusOnline || !flipped {
		t.Fatalf("first open: status=%s flipped=%v", st, flipped)
	}
	if _, flipped = p.ConnectionOpened("u1"); flipped {
		t.Fatal("second open must not flip")
	}
	if p.ActiveConnections("u1") != 2 {
		t.Fatalf("conns = %d, want 2", p.ActiveConnections("u1"))
	}

	st, _, flipped = p.ConnectionClosed("u1")
	if st != model.StatusOnline || flipped {
		t.Fatalf("close with one left: status=%s flipped=%v", st, flipped)
	}
	st, last, flipped := p.ConnectionClosed("u1")
	if st != model.StatusOffline || !flipped || last.IsZero() {
		t.Fatalf("last close: status=%s flipped=%v last=%v", st, flipped, last)
	}

	cur, seen := p.CurrentStatus("u1")
	if cur != model.StatusOffline || !seen.Equal(last) {
		t.Fatalf("after close: status=%s seen=%v want seen=%v", cur, seen, last)
	}
}

func TestPresenceCloseWithoutOpen(t *testing.T) {
	p := NewPresenceRegistry()
	if _, _, flipped := p.ConnectionClosed("ghost"); flipped {
		t.Fatal("unmatched close must not flip")
	}
	if p.ActiveConnections("ghost") != 0 {
		t.Fatal("counter went negative")
	}
}

func TestPresenceUnknownUserIsOffline(t *testing.T) {
	p := NewPresenceRegistry()
	st, seen := p.CurrentStatus("nobody")
	if st != model.StatusOffline || !seen.IsZero() {
		t.Fatalf("unknown user: status=%s seen=%v", st, seen)
	}
}

// Hammers one user with paired open/close from many goroutines and
// checks the flip counters balance out: however the edges interleave,
// onlines and offlines alternate, so their totals must match once
// every connection is gone.
func TestPresenceConcurrentOpenClose(t *testing.T) {
	const workers = 16
	const iters = 200

	p := NewPresenceRegistry()
	var onlines, offlines atomic.Int64
	var wg sync.WaitGroup

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				if _, flipped := p.ConnectionOpened("u1"); flipped {
					onlines.Add(1)
				}
				if _, _, flipped := p.ConnectionClosed("u1"); flipped {
					offlines.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if p.ActiveConnections("u1") != 0 {
		t.Fatalf("conns = %d after balanced open/close", p.ActiveConnections("u1"))
	}
	if onlines.Load() != offlines.Load() {
		t.Fatalf("flips unbalanced: %d onlines vs %d offlines", onlines.Load(), offlines.Load())
	}
	if onlines.Load() < 1 {
		t.Fatal("expected at least one online flip")
	}
	if st, _ := p.CurrentStatus("u1"); st != model.StatusOffline {
		t.Fatalf("final status = %s", st)
	}
}
