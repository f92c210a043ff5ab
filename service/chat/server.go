package chat

import (
	"context"
	"time"

	"CrossChat/logger"
	"CrossChat/module/chat/model"
	"CrossChat/service/natsx"
	"CrossChat/service/storage"
	"CrossChat/tools/safe"
	"CrossChat/tools/security"
)

// Biz route names for the optional NATS event mirror.
const (
	BizMessageEvents  = "message"
	BizPresenceEvents = "presence"
)

type Options struct {
	GatewayID     string // node id, also written into the presence mirror
	SendQueueSize int    // per-connection outbound buffer
	FanoutWorkers int
	FanoutQueue   int
	WriteTimeout  time.Duration
	PingInterval  time.Duration
	PongTimeout   time.Duration
	ReadLimit     int64
	Auth          security.Options
}

func (o *Options) norm() {
	if o.GatewayID == "" {
		o.GatewayID = "gw-1"
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
	if o.FanoutWorkers <= 0 {
		o.FanoutWorkers = 4
	}
	if o.FanoutQueue <= 0 {
		o.FanoutQueue = 1024
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 75 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 * 1024
	}
}

// Server owns every live connection plus the registries they share.
// One reader and one writer goroutine per connection; the registries
// are internally synchronized and never hold a lock across storage or
// network calls.
type Server struct {
	opts Options

	reg      *Registry
	presence *PresenceRegistry
	rooms    *RoomIndex
	fanout   *Fanout
	disp     *Dispatcher

	lifecycle *Lifecycle
	relay     *Relay
	store     storage.Storage

	mirror *storage.PresenceMirror // optional
	events *natsx.NatsManager      // optional
}

func NewServer(store storage.Storage, opts Options) *Server {
	opts.norm()
	s := &Server{
		opts:     opts,
		reg:      NewRegistry(),
		presence: NewPresenceRegistry(),
		rooms:    NewRoomIndex(),
		disp:     NewDispatcher(),
		store:    store,
	}
	s.fanout = NewFanout(opts.FanoutWorkers, opts.FanoutQueue, s.dropSlow)
	s.lifecycle = NewLifecycle(store, s)
	s.relay = NewRelay(s.rooms, s)

	s.disp.Register(sendHandler{lc: s.lifecycle})
	s.disp.Register(deliveredHandler{lc: s.lifecycle})
	s.disp.Register(readHandler{lc: s.lifecycle})
	s.disp.Register(typingHandler{relay: s.relay, kind: EventTypingStart})
	s.disp.Register(typingHandler{relay: s.relay, kind: EventTypingStop})
	return s
}

// SetPresenceMirror attaches the Redis presence mirror.
func (s *Server) SetPresenceMirror(m *storage.PresenceMirror) { s.mirror = m }

// SetEventMirror attaches the NATS publisher; routes BizMessageEvents
// and BizPresenceEvents must be registered by the caller.
func (s *Server) SetEventMirror(m *natsx.NatsManager) { s.events = m }

func (s *Server) Presence() *PresenceRegistry { return s.presence }

// Close drains the fanout pool and disconnects everyone.
func (s *Server) Close() {
	for _, c := range s.reg.listAll() {
		closeQuiet(c.WS)
	}
	s.fanout.Close()
}

// ---- Outbound ----

func (s *Server) ToRoom(roomID string, f *Frame) {
	payload, ok := s.encode(f)
	if !ok {
		return
	}
	s.fanout.Broadcast(s.rooms.MembersOf(roomID), payload)
	if f.Type == EventMessageNew {
		s.publish(BizMessageEvents, payload)
	}
}

func (s *Server) ToRoomExcept(roomID, connID string, f *Frame) {
	payload, ok := s.encode(f)
	if !ok {
		return
	}
	s.fanout.Broadcast(s.rooms.MembersExcept(roomID, connID), payload)
}

func (s *Server) ToAll(f *Frame) {
	payload, ok := s.encode(f)
	if !ok {
		return
	}
	s.fanout.Broadcast(s.reg.listAll(), payload)
	if f.Type == EventUserStatus {
		s.publish(BizPresenceEvents, payload)
	}
}

func (s *Server) ToClient(c *Client, f *Frame) {
	payload, ok := s.encode(f)
	if !ok {
		return
	}
	if !c.Enqueue(payload) && !c.Closed() {
		s.dropSlow(c)
	}
}

func (s *Server) encode(f *Frame) ([]byte, bool) {
	payload, err := f.Encode()
	if err != nil {
		logger.Errorf("[server] encode frame type=%s err=%v", f.Type, err)
		return nil, false
	}
	return payload, true
}

// dropSlow disconnects a connection that cannot keep up. Closing the
// socket makes its read loop exit, which runs normal cleanup; the
// broadcast to everyone else is unaffected.
func (s *Server) dropSlow(c *Client) {
	logger.Warnf("[server] dropping slow connection user=%s conn=%s", c.UserID, c.ConnID)
	closeQuiet(c.WS)
}

// publish mirrors an event onto NATS, fire-and-forget.
func (s *Server) publish(biz string, payload []byte) {
	if s.events == nil {
		return
	}
	ev := s.events
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := ev.Publish(ctx, biz, payload, nil); err != nil {
			logger.Warnf("[server] event mirror publish biz=%s err=%v", biz, err)
		}
	})
}

// mirrorPresence pushes a presence flip into Redis off the hot path.
func (s *Server) mirrorPresence(userID string, status model.Status) {
	if s.mirror == nil {
		return
	}
	m := s.mirror
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		var err error
		if status == model.StatusOnline {
			err = m.Online(ctx, userID)
		} else {
			err = m.Offline(ctx, userID)
		}
		if err != nil {
			logger.Warnf("[server] presence mirror user=%s status=%s err=%v", userID, status, err)
		}
	})
}
