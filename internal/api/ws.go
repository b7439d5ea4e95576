package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zoravur/liveq/internal/common"
	"github.com/zoravur/liveq/internal/protocol"
	"github.com/zoravur/liveq/internal/reactive"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sendBuffer is the per-connection outbound queue depth. Writes are
// best-effort: a full queue or a closed connection drops the frame and the
// client resyncs by resubscribing on reconnect.
const sendBuffer = 64

// WSHandler holds shared resources injected from app.Server.
type WSHandler struct {
	Registry *reactive.Registry
	Factory  reactive.ActionFactory
}

// wsConn is the per-connection state: its session, outbound queue and the
// subId -> registry key map for unsubscribe and disconnect cleanup.
type wsConn struct {
	ws   *websocket.Conn
	sess *reactive.Session
	ctx  context.Context
	log  *zap.Logger
	send chan protocol.ServerFrame

	mu   sync.Mutex
	subs map[string]string // subId -> registry key
}

// HandleWS upgrades the connection, builds the connection's action map under
// a fresh session, and dispatches frames until the peer goes away.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	sess := reactive.NewSession()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &wsConn{
		ws:   ws,
		sess: sess,
		ctx:  sess.Bind(ctx),
		log:  zap.L().With(zap.String("session", sess.ID())),
		send: make(chan protocol.ServerFrame, sendBuffer),
		subs: make(map[string]string),
	}
	c.log.Info("ws connected")

	// One action map per connection: session stores created inside the
	// factory bind to this session.
	actions := h.Factory()

	go c.writeLoop(ctx)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			c.log.Info("ws read loop ended", zap.Error(err))
			break
		}

		frame, err := protocol.Decode(raw)
		if err != nil {
			c.enqueue(protocol.Error("", "", "", err.Error()))
			continue
		}
		h.dispatch(c, actions, frame)
	}

	// Disconnect: cancel every subscription owned by this session, then
	// release the session's store slots.
	cancel()
	h.Registry.DropSession(sess.ID())
	sess.Close()
	c.log.Info("ws disconnected")
}

func (h *WSHandler) dispatch(c *wsConn, actions reactive.Actions, f protocol.ClientFrame) {
	switch f.Type {
	case protocol.TypeSubscribe:
		h.subscribe(c, actions, f)
	case protocol.TypeUnsubscribe:
		h.unsubscribe(c, f)
	case protocol.TypeMutation:
		h.mutate(c, actions, f)
	}
}

func (h *WSHandler) subscribe(c *wsConn, actions reactive.Actions, f protocol.ClientFrame) {
	act, ok := actions[f.Name]
	if !ok {
		c.enqueue(protocol.Error(f.Name, f.SubID, "", reactive.ErrUnknownAction.Error()))
		return
	}
	q, ok := act.(reactive.Query)
	if !ok {
		c.enqueue(protocol.Error(f.Name, f.SubID, "", reactive.ErrNotQuery.Error()))
		return
	}

	params, err := q.Params(f.Params)
	if err != nil {
		c.enqueue(protocol.Error(f.Name, f.SubID, "", err.Error()))
		return
	}

	// Non-reactive query: one update, no registry entry.
	if q.Immediate() {
		v, err := q.Fn(c.ctx, params)
		if err != nil {
			c.enqueue(protocol.Error(f.Name, f.SubID, "", err.Error()))
			return
		}
		c.emitUpdate(f.Name, f.SubID, v)
		return
	}

	fp, err := reactive.Fingerprint(params)
	if err != nil {
		c.enqueue(protocol.Error(f.Name, f.SubID, "", err.Error()))
		return
	}
	key := common.EncodeKey(c.sess.ID(), f.Name, fp)

	name, subID := f.Name, f.SubID
	err = h.Registry.Attach(key, name, c.sess.ID(), subID,
		func() *reactive.Computed { return q.Build(c.ctx, params) },
		func(v any, err error) {
			if err != nil {
				c.enqueue(protocol.Error(name, subID, "", err.Error()))
				return
			}
			c.emitUpdate(name, subID, v)
		})
	if err != nil {
		c.enqueue(protocol.Error(name, subID, "", err.Error()))
		return
	}

	// A reused subId with different params lands on a new key; the old
	// key's subscription must go, or it would keep emitting under this
	// subId with no way to unsubscribe it.
	c.mu.Lock()
	old, replaced := c.subs[subID]
	c.subs[subID] = key
	c.mu.Unlock()
	if replaced && old != key {
		h.Registry.Detach(old, subID)
	}
}

func (h *WSHandler) unsubscribe(c *wsConn, f protocol.ClientFrame) {
	c.mu.Lock()
	key, ok := c.subs[f.SubID]
	delete(c.subs, f.SubID)
	c.mu.Unlock()
	if !ok {
		return
	}
	h.Registry.Detach(key, f.SubID)
}

func (h *WSHandler) mutate(c *wsConn, actions reactive.Actions, f protocol.ClientFrame) {
	act, ok := actions[f.Name]
	if !ok {
		c.enqueue(protocol.Error(f.Name, "", f.RequestID, reactive.ErrUnknownAction.Error()))
		return
	}
	m, ok := act.(reactive.Mutation)
	if !ok {
		c.enqueue(protocol.Error(f.Name, "", f.RequestID, reactive.ErrNotMutation.Error()))
		return
	}

	v, err := m.Execute(c.ctx, f.Params)
	if err != nil {
		c.enqueue(protocol.Error(f.Name, "", f.RequestID, err.Error()))
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.enqueue(protocol.Error(f.Name, "", f.RequestID, err.Error()))
		return
	}
	c.enqueue(protocol.MutationResult(f.Name, f.RequestID, data))
}

func (c *wsConn) emitUpdate(name, subID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.enqueue(protocol.Error(name, subID, "", err.Error()))
		return
	}
	c.enqueue(protocol.Update(name, subID, data))
}

// enqueue hands a frame to the writer goroutine without blocking. Frames
// queued after the connection is gone are never written.
func (c *wsConn) enqueue(f protocol.ServerFrame) {
	select {
	case c.send <- f:
	default:
		c.log.Warn("ws send buffer full, dropping frame",
			zap.String("type", f.Type), zap.String("subId", f.SubID))
	}
}

// writeLoop is the single writer for the connection.
func (c *wsConn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.send:
			if err := c.ws.WriteJSON(f); err != nil {
				c.log.Debug("ws write failed", zap.Error(err))
			}
		}
	}
}
