package upstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"contractcache/internal/jsonrpc"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsWriteTimeout     = 10 * time.Second
	wsPingInterval     = 20 * time.Second
	wsReadTimeout      = 60 * time.Second
)

var (
	errWSClosed         = errors.New("websocket transport closed")
	errWSConnectionLost = errors.New("websocket connection lost")
)

// wsConn is one live connection and the requests waiting on it
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan *jsonrpc.Response
	broken    bool
	done      chan struct{}
}

// register adds a waiter for id; it fails once the connection is broken
func (c *wsConn) register(id string) (chan *jsonrpc.Response, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.broken {
		return nil, false
	}
	ch := make(chan *jsonrpc.Response, 1)
	c.pending[id] = ch
	return ch, true
}

func (c *wsConn) unregister(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *wsConn) deliver(resp *jsonrpc.Response) bool {
	key := resp.ID.Key()
	c.pendingMu.Lock()
	ch, ok := c.pending[key]
	delete(c.pending, key)
	c.pendingMu.Unlock()
	if ok {
		ch <- resp
	}
	return ok
}

// fail wakes every waiter with a nil response
func (c *wsConn) fail() {
	c.pendingMu.Lock()
	if !c.broken {
		c.broken = true
		close(c.done)
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

// WSTransport multiplexes JSON-RPC requests over one WebSocket connection.
// The connection is dialed on first use and redialed on the next call after it drops.
type WSTransport struct {
	wsURL        string
	dialer       websocket.Dialer
	pingInterval time.Duration
	readTimeout  time.Duration
	logger       zerolog.Logger

	mu     sync.Mutex
	cur    *wsConn
	closed bool
	wg     sync.WaitGroup
}

// NewWSTransport creates a new WSTransport
func NewWSTransport(wsURL string, logger zerolog.Logger) *WSTransport {
	return &WSTransport{
		wsURL:        wsURL,
		dialer:       websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout},
		pingInterval: wsPingInterval,
		readTimeout:  wsReadTimeout,
		logger:       logger.With().Str("component", "upstream-ws").Logger(),
	}
}

// Execute sends an RPC request and waits for the response with the same id
func (t *WSTransport) Execute(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	c, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	reqBytes, err := req.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	id := req.ID.Key()
	respChan, ok := c.register(id)
	if !ok {
		return nil, errWSConnectionLost
	}

	deadline := time.Now().Add(wsWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(deadline)
	writeErr := c.conn.WriteMessage(websocket.TextMessage, reqBytes)
	c.writeMu.Unlock()
	if writeErr != nil {
		c.unregister(id)
		t.drop(c, writeErr)
		return nil, fmt.Errorf("failed to send request: %w", writeErr)
	}

	select {
	case resp := <-respChan:
		if resp == nil {
			return nil, errWSConnectionLost
		}
		return resp, nil
	case <-ctx.Done():
		c.unregister(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// a call left unanswered retires the connection; the next call redials
			t.drop(c, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

// connect returns the live connection, dialing a new one if needed
func (t *WSTransport) connect(ctx context.Context) (*wsConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, errWSClosed
	}
	if t.cur != nil {
		return t.cur, nil
	}

	conn, _, err := t.dialer.DialContext(ctx, t.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect WebSocket: %w", err)
	}

	c := &wsConn{
		conn:    conn,
		pending: make(map[string]chan *jsonrpc.Response),
		done:    make(chan struct{}),
	}
	t.cur = c

	t.setPongHandler(c)
	t.logger.Info().Msg("WebSocket connected")

	t.wg.Add(1)
	go t.readLoop(c)
	if t.pingInterval > 0 {
		t.wg.Add(1)
		go t.pingLoop(c)
	}

	return c, nil
}

func (t *WSTransport) readLoop(c *wsConn) {
	defer t.wg.Done()

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(t.readTimeout))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			t.drop(c, err)
			return
		}

		resp, err := jsonrpc.ParseResponse(data)
		if err != nil {
			t.logger.Warn().Err(err).Msg("unparseable message from node")
			continue
		}
		if !c.deliver(resp) {
			t.logger.Debug().Str("id", resp.ID.Key()).Msg("response for unknown request")
		}
	}
}

// setPongHandler extends the read deadline whenever the node answers a ping
func (t *WSTransport) setPongHandler(c *wsConn) {
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(t.readTimeout))
	})
}

func (t *WSTransport) pingLoop(c *wsConn) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				t.logger.Debug().Err(err).Msg("ping write failed")
				t.drop(c, err)
				return
			}
		}
	}
}

// drop retires c so the next call redials
func (t *WSTransport) drop(c *wsConn, cause error) {
	t.mu.Lock()
	current := t.cur == c
	if current {
		t.cur = nil
	}
	closed := t.closed
	t.mu.Unlock()

	_ = c.conn.Close()
	c.fail()

	if current && !closed {
		t.logger.Warn().Err(cause).Msg("WebSocket connection lost")
	}
}

// Close closes the connection and waits for the reader to exit
func (t *WSTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	c := t.cur
	t.cur = nil
	t.mu.Unlock()

	if c != nil {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
		c.fail()
	}

	t.wg.Wait()
	return nil
}
