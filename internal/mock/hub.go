package mock

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gkstorejd-max/gkstore-admin/internal/socketio"
)

const (
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
	hubWriteTimeout     = 10 * time.Second
	hubMaxPayload       = 1000000
	sendBuffer          = 64
)

// AuthFunc authorizes the handshake request of a socket connect.
type AuthFunc func(r *http.Request) (*Claims, error)

// Hub is a websocket-only Socket.IO server on the default namespace.
type Hub struct {
	auth     AuthFunc
	upgrader websocket.Upgrader
	logger   *slog.Logger

	pingInterval time.Duration
	pingTimeout  time.Duration

	mu      sync.RWMutex
	clients map[*conn]struct{}
}

func NewHub(auth AuthFunc, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		auth: auth,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:       logger.With("component", "socket"),
		pingInterval: defaultPingInterval,
		pingTimeout:  defaultPingTimeout,
		clients:      make(map[*conn]struct{}),
	}
}

// SetPing overrides the heartbeat advertised to clients.
func (h *Hub) SetPing(interval, timeout time.Duration) {
	h.pingInterval = interval
	h.pingTimeout = timeout
}

type conn struct {
	ws   *websocket.Conn
	sid  string
	pong chan struct{}
	done chan struct{}

	mu     sync.Mutex
	send   chan string
	closed bool
	joined bool
	userID string
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:   ws,
		sid:  uuid.NewString(),
		pong: make(chan struct{}, 1),
		done: make(chan struct{}),
		send: make(chan string, sendBuffer),
	}
}

// trySend queues msg without blocking and reports whether it was queued.
func (c *conn) trySend(msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close stops accepting messages. The write pump flushes what is queued and
// then closes the socket.
func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *conn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("EIO") != socketio.Version || q.Get("transport") != "websocket" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":0,"message":"Transport unknown"}`))
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("socket upgrade failed", "error", err)
		return
	}
	ws.SetReadLimit(hubMaxPayload)

	c := newConn(ws)
	go c.writePump()

	open, _ := json.Marshal(socketio.Open{
		SID:          c.sid,
		Upgrades:     []string{},
		PingInterval: int(h.pingInterval / time.Millisecond),
		PingTimeout:  int(h.pingTimeout / time.Millisecond),
		MaxPayload:   hubMaxPayload,
	})
	c.trySend(socketio.EncodeEngine(socketio.EngineOpen, string(open)))
	go h.pingLoop(c)

	defer func() {
		close(c.done)
		h.remove(c)
	}()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if !h.handle(r, c, string(data)) {
			return
		}
	}
}

// handle processes one engine packet and reports whether to keep reading.
func (h *Hub) handle(r *http.Request, c *conn, raw string) bool {
	t, data, err := socketio.DecodeEngine(raw)
	if err != nil {
		return true
	}
	switch t {
	case socketio.EnginePong:
		select {
		case c.pong <- struct{}{}:
		default:
		}
	case socketio.EngineClose:
		return false
	case socketio.EngineMessage:
		p, err := socketio.Decode(data)
		if err != nil {
			return true
		}
		switch p.Type {
		case socketio.PacketConnect:
			return h.connect(r, c, p)
		case socketio.PacketDisconnect:
			return false
		}
	}
	return true
}

func (h *Hub) connect(r *http.Request, c *conn, p socketio.Packet) bool {
	if p.Namespace != "/" {
		c.trySend(socketio.Message(socketio.ConnectErrorPacket(p.Namespace, "Invalid namespace")))
		return true
	}
	claims, err := h.auth(r)
	if err != nil {
		c.trySend(socketio.Message(socketio.ConnectErrorPacket(p.Namespace, "Authentication error")))
		h.logger.Info("socket connect rejected", "error", err)
		return false
	}

	ack, _ := socketio.ConnectPacket("/", map[string]string{"sid": uuid.NewString()})
	c.mu.Lock()
	already := c.joined
	c.joined = true
	c.userID = claims.UserID
	c.mu.Unlock()
	if already {
		return true
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	c.trySend(socketio.Message(ack))
	h.logger.Info("socket connected", "sid", c.sid, "user_id", claims.UserID)
	return true
}

func (h *Hub) pingLoop(c *conn) {
	for {
		select {
		case <-c.done:
			return
		case <-time.After(h.pingInterval):
		}
		if !c.trySend(socketio.EncodeEngine(socketio.EnginePing, "")) {
			return
		}
		select {
		case <-c.done:
			return
		case <-c.pong:
		case <-time.After(h.pingTimeout):
			h.logger.Info("socket ping timeout", "sid", c.sid)
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) snapshot() []*conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*conn, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast emits event to every connected socket. Clients that cannot keep
// up are disconnected.
func (h *Hub) Broadcast(event string, args ...any) {
	p, err := socketio.EventPacket("/", event, args...)
	if err != nil {
		h.logger.Error("broadcast encode failed", "event", event, "error", err)
		return
	}
	msg := socketio.Message(p)
	for _, c := range h.snapshot() {
		if !c.trySend(msg) {
			h.logger.Warn("socket client too slow, disconnecting", "sid", c.sid)
			h.remove(c)
		}
	}
}

// DisconnectAll ends every socket with a server-side namespace disconnect.
func (h *Hub) DisconnectAll() {
	msg := socketio.Message(socketio.DisconnectPacket("/"))
	for _, c := range h.snapshot() {
		c.trySend(msg)
		h.remove(c)
	}
}

// ClientCount returns the number of sockets joined to the namespace.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
