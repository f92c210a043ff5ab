package chat

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"CrossChat/logger"
	"CrossChat/module/chat/model"
	"CrossChat/tools/errs"
	"CrossChat/tools/ids"
	"CrossChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by middleware in front of this
	// handler.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS is the websocket entry point. The credential is verified
// before the upgrade: a bad token is rejected with 401 and no registry
// is ever touched for that attempt.
func (s *Server) HandleWS(c *gin.Context) {
	token := extractToken(c)
	userID, err := security.VerifyUser(s.opts.Auth, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication error"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), userID, ws, s.opts.SendQueueSize)
	s.register(client)
	go s.writePump(client)

	s.readLoop(client)

	// Cleanup must finish before the connection counts as closed;
	// otherwise a ghost member lingers in the room index.
	s.disconnect(client)
}

func extractToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}

// register wires a freshly authenticated connection into the presence
// registry and the room index, announcing the online flip if this was
// the user's first connection.
func (s *Server) register(client *Client) {
	s.reg.add(client)

	if _, flipped := s.presence.ConnectionOpened(client.UserID); flipped {
		s.relay.PresenceChanged(client.UserID, model.StatusOnline, time.Time{})
		s.mirrorPresence(client.UserID, model.StatusOnline)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	roomIDs, err := s.store.FindRoomsForUser(ctx, client.UserID)
	if err != nil {
		// The connection stays up; it just sees no rooms until reconnect.
		logger.Errorf("[ws] load rooms user=%s err=%v", client.UserID, err)
		return
	}
	for _, roomID := range roomIDs {
		s.rooms.Join(client, roomID)
	}
	logger.Infof("[ws] connected user=%s conn=%s rooms=%d", client.UserID, client.ConnID, len(roomIDs))
}

func (s *Server) readLoop(client *Client) {
	ws := client.WS
	ws.SetReadLimit(s.opts.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	})

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", client.ConnID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s", client.ConnID)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ConnID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		s.handleFrame(client, f)
	}
}

// handleFrame dispatches one inbound event. Handler failures are
// scoped: the originating connection gets an error event, nobody else
// sees anything.
func (s *Server) handleFrame(client *Client, f *Frame) {
	cctx := &ChatContext{S: s, Ctx: context.Background()}
	if err := s.disp.Dispatch(cctx, f, client); err != nil {
		logger.Infof("[ws] handler type=%s user=%s err=%v", f.Type, client.UserID, err)
		s.ToClient(client, BuildError(scopedErrorMessage(err)))
	}
}

// disconnect runs full cleanup for a finished connection: room index
// first (atomically closing the client), then the user's presence
// counter, broadcasting the offline flip only when the last connection
// went away.
func (s *Server) disconnect(client *Client) {
	s.rooms.LeaveAll(client)
	s.reg.remove(client)
	close(client.Send)

	status, lastSeen, flipped := s.presence.ConnectionClosed(client.UserID)
	if flipped {
		s.relay.PresenceChanged(client.UserID, status, lastSeen)
		s.mirrorPresence(client.UserID, model.StatusOffline)
	}
	logger.Infof("[ws] disconnected user=%s conn=%s", client.UserID, client.ConnID)
}

func (s *Server) writePump(client *Client) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	defer closeQuiet(client.WS)

	for {
		select {
		case payload, ok := <-client.Send:
			if !ok {
				_ = client.WS.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
				_ = client.WS.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = client.WS.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := client.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write err conn=%s err=%v", client.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = client.WS.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := client.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandlePresence serves the current status of a user straight from
// the registry.
func (s *Server) HandlePresence(c *gin.Context) {
	userID := c.Param("userId")
	status, lastSeen := s.presence.CurrentStatus(userID)
	resp := gin.H{"userId": userID, "status": status}
	if !lastSeen.IsZero() {
		resp["lastSeen"] = lastSeen.UnixMilli()
	}
	c.JSON(http.StatusOK, resp)
}

// scopedErrorMessage picks the client-facing text for a handler
// failure; anything uncoded stays opaque.
func scopedErrorMessage(err error) string {
	if ce, ok := errs.AsCodeError(err); ok {
		return ce.Msg
	}
	return "internal error"
}

func closeQuiet(ws *websocket.Conn) {
	if ws != nil {
		_ = ws.Close()
	}
}
