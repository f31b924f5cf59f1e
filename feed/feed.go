// Package feed maintains the single upstream WebSocket subscription to the
// stock feed and supervises its reconnect lifecycle.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

const (
	// DefaultPingInterval is how often the keep-alive frame is sent while
	// the connection is open.
	DefaultPingInterval = 10 * time.Second
	// DefaultReconnectDelay is the fixed wait before a reconnect attempt.
	// No exponential backoff, no attempt cap.
	DefaultReconnectDelay = 3 * time.Second

	maxFrameSize = 1 << 20 // 1MB
)

// State is the connection state exposed for the status endpoint and tests.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Conn is the minimal transport surface the manager needs. The real
// implementation wraps a WebSocket; tests inject fakes.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens a transport connection to the feed URL.
type Dialer func(ctx context.Context, url string) (Conn, error)

// Handler receives the data member of each successful feed frame.
type Handler func(ctx context.Context, data json.RawMessage)

// frame is the upstream envelope. Only status == "success" frames with a
// data member are processed; everything else is dropped silently.
type frame struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Manager owns the one live upstream connection.
type Manager struct {
	dial           Dialer
	handler        Handler
	logger         *slog.Logger
	url            string
	pingInterval   time.Duration
	reconnectDelay time.Duration

	mu    sync.Mutex
	state State
}

// New creates a feed manager. A nil dialer uses the WebSocket transport.
func New(url string, dial Dialer, handler Handler, logger *slog.Logger) *Manager {
	if dial == nil {
		dial = DialWebSocket
	}
	return &Manager{
		url:            url,
		dial:           dial,
		handler:        handler,
		logger:         logger,
		pingInterval:   DefaultPingInterval,
		reconnectDelay: DefaultReconnectDelay,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Run supervises the connection until ctx is cancelled. Each disconnect
// schedules exactly one reconnect attempt after the fixed delay; the loop
// structure makes duplicate timers impossible.
func (m *Manager) Run(ctx context.Context) error {
	for {
		m.setState(Connecting)
		conn, err := m.dial(ctx, m.url)
		if err != nil {
			m.setState(Disconnected)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Warn("Feed dial failed", "url", m.url, "error", err)
		} else {
			m.setState(Connected)
			m.logger.Info("Feed connected", "url", m.url)

			err = m.serve(ctx, conn)
			m.setState(Disconnected)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Warn("Feed disconnected, reconnect scheduled",
				"delay", m.reconnectDelay.String(), "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.reconnectDelay):
		}
	}
}

// serve reads frames until the connection fails. The keep-alive writer runs
// alongside; a write error force-closes the connection so the read loop
// unblocks and the reconnect path takes over.
func (m *Manager) serve(ctx context.Context, conn Conn) error {
	defer func() {
		if err := conn.Close(); err != nil {
			m.logger.Debug("Feed close", "error", err)
		}
	}()

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go m.keepAlive(pingCtx, conn)

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			// Malformed frame: drop silently per the error contract.
			continue
		}
		if f.Status != "success" || len(f.Data) == 0 || string(f.Data) == "null" {
			continue
		}

		m.handler(ctx, f.Data)
	}
}

func (m *Manager) keepAlive(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Write(ctx, []byte("ping")); err != nil {
				m.logger.Warn("Feed keep-alive failed, closing connection", "error", err)
				if closeErr := conn.Close(); closeErr != nil {
					m.logger.Debug("Feed close after ping failure", "error", closeErr)
				}
				return
			}
		}
	}
}

// wsConn adapts a WebSocket connection to the Conn interface.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.conn.Read(ctx)
	return data, err
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.conn.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "shutdown")
}

// DialWebSocket is the production dialer.
func DialWebSocket(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(maxFrameSize)
	return &wsConn{conn: c}, nil
}
