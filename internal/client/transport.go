package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gkstorejd-max/gkstore-admin/internal/socketio"
	"github.com/gorilla/websocket"
)

// Transport names in the order the channel prefers them.
const (
	TransportWebsocket = "websocket"
	TransportPolling   = "polling"
)

const (
	writeTimeout = 10 * time.Second
	maxPayload   = 1 << 20
)

var errTransportClosed = errors.New("transport closed")

// transport carries engine packets for one realtime session. Read blocks until
// at least one packet arrives or the transport is closed.
type transport interface {
	Name() string
	Open() socketio.Open
	Read() ([]string, error)
	Write(packets ...string) error
	Close() error
}

// engineURL returns the engine endpoint for the given transport name.
func engineURL(base *url.URL, name string) *url.URL {
	u := *base
	q := u.Query()
	q.Set("EIO", socketio.Version)
	q.Set("transport", name)
	u.RawQuery = q.Encode()
	return &u
}

// --- websocket ---

type wsTransport struct {
	conn *websocket.Conn
	open socketio.Open

	writeMu   sync.Mutex // serialises all conn writes
	closeOnce sync.Once
}

func dialWebsocket(ctx context.Context, base *url.URL, jar http.CookieJar) (*wsTransport, error) {
	u := engineURL(base, TransportWebsocket)
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
		Jar:              jar,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	conn.SetReadLimit(maxPayload)

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read open packet: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	open, err := parseOpenPacket(string(data))
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &wsTransport{conn: conn, open: open}, nil
}

func (t *wsTransport) Name() string        { return TransportWebsocket }
func (t *wsTransport) Open() socketio.Open { return t.open }

func (t *wsTransport) Read() ([]string, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return []string{string(data)}, nil
}

func (t *wsTransport) Write(packets ...string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	for _, p := range packets {
		t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := t.conn.WriteMessage(websocket.TextMessage, []byte(p)); err != nil {
			return err
		}
	}
	return nil
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.conn.Close()
	})
	return err
}

// --- long-polling ---

type pollingTransport struct {
	client   *http.Client
	endpoint *url.URL
	open     socketio.Open

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending []string // packets that arrived with the handshake
}

func dialPolling(ctx context.Context, base *url.URL, jar http.CookieJar) (*pollingTransport, error) {
	endpoint := engineURL(base, TransportPolling)
	client := &http.Client{Jar: jar}

	packets, err := pollOnce(ctx, client, endpoint)
	if err != nil {
		return nil, fmt.Errorf("polling handshake: %w", err)
	}
	if len(packets) == 0 {
		return nil, errors.New("polling handshake: empty response")
	}
	open, err := parseOpenPacket(packets[0])
	if err != nil {
		return nil, err
	}

	q := endpoint.Query()
	q.Set("sid", open.SID)
	endpoint.RawQuery = q.Encode()

	tctx, cancel := context.WithCancel(context.Background())
	return &pollingTransport{
		client:   client,
		endpoint: endpoint,
		open:     open,
		ctx:      tctx,
		cancel:   cancel,
		pending:  packets[1:],
	}, nil
}

func (t *pollingTransport) Name() string        { return TransportPolling }
func (t *pollingTransport) Open() socketio.Open { return t.open }

func (t *pollingTransport) Read() ([]string, error) {
	t.mu.Lock()
	if len(t.pending) > 0 {
		out := t.pending
		t.pending = nil
		t.mu.Unlock()
		return out, nil
	}
	t.mu.Unlock()

	for {
		packets, err := pollOnce(t.ctx, t.client, t.endpoint)
		if err != nil {
			if t.ctx.Err() != nil {
				return nil, errTransportClosed
			}
			return nil, err
		}
		if len(packets) > 0 {
			return packets, nil
		}
	}
}

func (t *pollingTransport) Write(packets ...string) error {
	if t.ctx.Err() != nil {
		return errTransportClosed
	}
	ctx, cancel := context.WithTimeout(t.ctx, writeTimeout)
	defer cancel()
	return t.post(ctx, packets)
}

func (t *pollingTransport) post(ctx context.Context, packets []string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cacheBust(t.endpoint), strings.NewReader(socketio.JoinPayload(packets)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polling write: %s", resp.Status)
	}
	return nil
}

func (t *pollingTransport) Close() error {
	if t.ctx.Err() != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := t.post(ctx, []string{socketio.EncodeEngine(socketio.EngineClose, "")})
	t.cancel()
	return err
}

// pollOnce issues one long-polling GET and returns its packets.
func pollOnce(ctx context.Context, client *http.Client, endpoint *url.URL) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cacheBust(endpoint), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polling: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return socketio.SplitPayload(string(body)), nil
}

func cacheBust(endpoint *url.URL) string {
	u := *endpoint
	q := u.Query()
	q.Set("t", strconv.FormatInt(time.Now().UnixNano(), 36))
	u.RawQuery = q.Encode()
	return u.String()
}

func parseOpenPacket(raw string) (socketio.Open, error) {
	typ, data, err := socketio.DecodeEngine(raw)
	if err != nil {
		return socketio.Open{}, err
	}
	if typ != socketio.EngineOpen {
		return socketio.Open{}, fmt.Errorf("expected open packet, got %q", raw)
	}
	return socketio.ParseOpen(data)
}
