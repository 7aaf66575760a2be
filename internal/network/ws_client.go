// Package network connects to a remote winbridge event stream.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"winbridge/internal/protocol"
)

// ErrUnauthorized is returned when the server rejects the token.
var ErrUnauthorized = errors.New("network: stream rejected the token")

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// WSClient follows a stream, reconnecting until its context ends
type WSClient struct {
	url   string
	token string
	retry time.Duration

	// OnMessage is called for every message, on the goroutine running Run.
	OnMessage func(protocol.Message)
	// OnConnect is called after each successful connection.
	OnConnect func()

	mu          sync.Mutex
	isConnected bool
}

// NewWSClient creates a client for addr, either host:port or a ws:// URL.
func NewWSClient(addr, token string) *WSClient {
	return &WSClient{
		url:   StreamURL(addr),
		token: token,
		retry: 5 * time.Second,
	}
}

// StreamURL turns host:port into the stream's WebSocket URL. Full URLs are
// returned unchanged.
func StreamURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	return u.String()
}

// SetRetry sets the delay between reconnection attempts.
func (c *WSClient) SetRetry(d time.Duration) {
	c.retry = d
}

// Run connects and delivers messages until ctx is done, reconnecting after
// failures. It returns nil when ctx ends and ErrUnauthorized when retrying
// cannot help.
func (c *WSClient) Run(ctx context.Context) error {
	for {
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		slog.Warn("stream disconnected", "url", c.url, "err", err, "retry", c.retry)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.retry):
		}
	}
}

func (c *WSClient) connect(ctx context.Context) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	c.setConnected(true)
	defer c.setConnected(false)
	slog.Info("stream connected", "url", c.url)
	if c.OnConnect != nil {
		c.OnConnect()
	}

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	})
	defer stop()

	return c.readPump(conn)
}

func (c *WSClient) readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(1 << 16)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid stream message", "err", err)
			continue
		}
		if c.OnMessage != nil {
			c.OnMessage(msg)
		}
	}
}

func (c *WSClient) setConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = v
}

// IsConnected returns true if the client is connected
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}
