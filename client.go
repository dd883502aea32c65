package main

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	defaultPongWait = 60 * time.Second
)

// pongWaitFor bounds how long a silent socket stays open; it tracks the
// hub's heartbeat timeout.
func pongWaitFor(cfg *Config) time.Duration {
	if cfg.HeartbeatTimeout > 0 {
		return cfg.HeartbeatTimeout
	}
	return defaultPongWait
}

func pingPeriodFor(wait time.Duration) time.Duration {
	return (wait * 9) / 10
}

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Client adapts a websocket connection to the Transport the hub consumes.
// Send only enqueues; WritePump owns every write to the socket.
type Client struct {
	conn   *websocket.Conn
	userID string
	ip     string
	send   chan []byte
	onPong func()

	pongWait   time.Duration
	pingPeriod time.Duration

	mu     sync.Mutex
	closed bool
}

func NewClient(conn *websocket.Conn, userID, ip string, cfg *Config) *Client {
	wait := pongWaitFor(cfg)
	c := &Client{
		conn:       conn,
		userID:     userID,
		ip:         ip,
		send:       make(chan []byte, cfg.SendBufferSize),
		pongWait:   wait,
		pingPeriod: pingPeriodFor(wait),
	}

	conn.SetReadLimit(cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(c.pongWait))
	conn.SetPongHandler(func(string) error {
		if c.onPong != nil {
			c.onPong()
		}
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})
	return c
}

// OnPong registers fn to run on every pong. Call it before the first Receive.
func (c *Client) OnPong(fn func()) {
	c.onPong = fn
}

func (c *Client) Receive() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			slog.Warn("read error", "user", c.userID, "remote", c.ip, "error", err)
		}
		return nil, err
	}
	return data, nil
}

func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and tears the socket
// down. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("write error", "user", c.userID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
