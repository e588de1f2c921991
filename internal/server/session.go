package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fairdiet/fairdiet/internal/logging"
	"github.com/fairdiet/fairdiet/internal/pipeline"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 8
)

// Message types sent to the client.
const (
	MessageHello  = "hello"
	MessageResult = "result"
	MessageError  = "error"
)

// Message is a server-to-client websocket frame. Clients send bare
// pipeline.Request objects.
type Message struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Seq       uint64                 `json:"seq,omitempty"`
	Outcome   string                 `json:"outcome,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Bundle    *pipeline.ResultBundle `json:"bundle,omitempty"`
	Regions   []string               `json:"regions,omitempty"`
}

// session is one websocket client with its own scheduler, so a burst of
// selections only produces the newest result.
type session struct {
	id     string
	conn   *websocket.Conn
	sched  *pipeline.Scheduler
	send   chan Message
	ctx    context.Context
	cancel context.CancelFunc

	// done closes once the scheduler's results channel is drained.
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.FromContext(c.Request.Context()).Debug().
			Ctx(c.Request.Context()).
			Str("component", "server").
			Err(err).
			Msg("websocket upgrade failed")
		return
	}

	id := uuid.New().String()
	ctx, cancel := context.WithCancel(s.ctx)
	ctx = logging.ContextWithTraceID(ctx, logging.TraceIDFromContext(c.Request.Context()))
	log := logging.FromContext(ctx).With().Str("session_id", id).Logger()
	ctx = log.WithContext(ctx)

	sess := &session{
		id:     id,
		conn:   conn,
		sched:  pipeline.NewScheduler(ctx, s.backend),
		send:   make(chan Message, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.addSession(sess)
	log.Info().Ctx(ctx).Str("component", "server").Msg("websocket session opened")

	sess.enqueue(Message{Type: MessageHello, SessionID: id, Regions: s.backend.Regions()})

	go sess.forward()
	go sess.writePump()
	go func() {
		sess.readPump()
		sess.close()
		s.removeSession(id)
		log.Info().Ctx(ctx).Str("component", "server").Msg("websocket session closed")
	}()
}

// readPump decodes requests and submits them until the connection fails.
func (sess *session) readPump() {
	log := logging.FromContext(sess.ctx)
	sess.conn.SetReadLimit(maxMessageSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Ctx(sess.ctx).Str("component", "server").Err(err).Msg("websocket read failed")
			}
			return
		}

		var req pipeline.Request
		if err := json.Unmarshal(data, &req); err != nil {
			sess.enqueue(Message{
				Type:    MessageError,
				Outcome: pipeline.OutcomeInvalidSelection.String(),
				Error:   "decoding request: " + err.Error(),
			})
			continue
		}
		seq := sess.sched.Submit(req)
		log.Debug().
			Ctx(sess.ctx).
			Str("component", "server").
			Uint64("seq", seq).
			Str("region", req.Region).
			Str("state", req.State.String()).
			Msg("recompute submitted")
	}
}

// forward relays scheduler results until the scheduler stops.
func (sess *session) forward() {
	defer close(sess.done)
	for r := range sess.sched.Results() {
		sess.enqueue(resultMessage(r))
	}
}

// writePump serialises every write to the connection and keeps it alive
// with pings.
func (sess *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sess.conn.Close()
	}()

	for {
		select {
		case msg := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sess.done:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = sess.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// enqueue hands msg to the writer unless the session is shutting down.
// send is never closed, so senders only need to watch ctx.
func (sess *session) enqueue(msg Message) {
	select {
	case sess.send <- msg:
	case <-sess.ctx.Done():
	}
}

// close stops the scheduler, which in turn ends forward and writePump.
func (sess *session) close() {
	sess.closeOnce.Do(func() {
		sess.cancel()
		sess.sched.Close()
	})
}

func resultMessage(r pipeline.Result) Message {
	outcome := r.Outcome()
	msg := Message{Seq: r.Seq, Outcome: outcome.String()}
	switch {
	case r.Err != nil:
		msg.Type = MessageError
		msg.Error = r.Err.Error()
	case r.Bundle == nil:
		msg.Type = MessageError
		msg.Error = "recompute returned no results"
	default:
		msg.Type = MessageResult
		msg.Bundle = r.Bundle
	}
	return msg
}
