package chat

import (
	"sync"
	"time"

	"CrossChat/module/chat/model"
)

type presenceEntry struct {
	conns    int
	lastSeen time.Time
}

// PresenceRegistry tracks per-user presence by counting live
// connections. Status flips are driven solely by the counter, so
// open/close races for the same user can never emit two onlines (or
// two offlines) in a row: only the 0->1 and 1->0 edges flip.
type PresenceRegistry struct {
	mu    sync.Mutex
	users map[string]*presenceEntry
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{users: make(map[string]*presenceEntry)}
}

// ConnectionOpened registers one more connection for the user.
// flipped is true only when this was the user's first live connection.
func (r *PresenceRegistry) ConnectionOpened(user string) (status model.Status, flipped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.users[user]
	if e == nil {
		e = &presenceEntry{}
		r.users[user] = e
	}
	e.conns++
	return model.StatusOnline, e.conns == 1
}

// ConnectionClosed unregisters one connection. flipped is true only
// when the last connection for the user went away; lastSeen is
// stamped at that transition.
func (r *PresenceRegistry) ConnectionClosed(user string) (status model.Status, lastSeen time.Time, flipped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.users[user]
	if e == nil || e.conns == 0 {
		// close without a matching open; the counter never goes negative
		return model.StatusOffline, time.Time{}, false
	}
	e.conns--
	if e.conns > 0 {
		return model.StatusOnline, time.Time{}, false
	}
	e.lastSeen = time.Now()
	return model.StatusOffline, e.lastSeen, true
}

// CurrentStatus reports the user's status and, when offline, the last
// time they were seen.
func (r *PresenceRegistry) CurrentStatus(user string) (model.Status, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.users[user]
	if e == nil || e.conns == 0 {
		var last time.Time
		if e != nil {
			last = e.lastSeen
		}
		return model.StatusOffline, last
	}
	return model.StatusOnline, time.Time{}
}

// ActiveConnections is exposed for tests and diagnostics.
func (r *PresenceRegistry) ActiveConnections(user string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.users[user]; e != nil {
		return e.conns
	}
	return 0
}
