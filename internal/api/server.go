// Package api streams winbridge events to remote listeners over WebSocket
// and reports the stream's status over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"winbridge/internal/protocol"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("api: server closed")

// Server broadcasts published messages to every connected client
type Server struct {
	source  string
	version string
	token   string
	hub     *hub
	started time.Time

	seq       atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64

	mu        sync.Mutex
	http      *http.Server
	closeOnce sync.Once
}

// Status is the body of GET /api/status
type Status struct {
	Source    string  `json:"source"`
	Version   string  `json:"version"`
	Clients   int     `json:"clients"`
	Published uint64  `json:"published"`
	Dropped   uint64  `json:"dropped"`
	Uptime    float64 `json:"uptime_seconds"`
}

// NewServer creates a server for the stream of source. A non-empty token is
// required as a bearer token on every request except /health.
func NewServer(source, version, token string) *Server {
	s := &Server{
		source:  source,
		version: version,
		token:   token,
		hub:     newHub(),
		started: time.Now(),
	}
	go s.hub.run()
	return s
}

// Handler returns the HTTP handler serving /ws, /api/status and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr has port 0.
func (s *Server) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("api: listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("stream server stopped", "err", err)
		}
	}()
	slog.Info("streaming events", "addr", ln.Addr().String(), "source", s.source, "auth", s.token != "")
	return ln.Addr(), nil
}

// Publish queues a message for every connected client. It never blocks: when
// the queue is full the message is dropped and counted, leaving a gap in the
// sequence numbers clients see.
func (s *Server) Publish(t protocol.MessageType, payload any) error {
	select {
	case <-s.hub.done:
		return ErrClosed
	default:
	}

	msg, err := protocol.New(t, payload)
	if err != nil {
		return err
	}
	msg.Seq = s.seq.Add(1)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("api: encode message: %w", err)
	}

	select {
	case s.hub.broadcast <- data:
		s.published.Add(1)
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return int(s.hub.count.Load())
}

// Status returns the stream counters.
func (s *Server) Status() Status {
	return Status{
		Source:    s.source,
		Version:   s.version,
		Clients:   s.Clients(),
		Published: s.published.Load(),
		Dropped:   s.dropped.Load(),
		Uptime:    time.Since(s.started).Seconds(),
	}
}

// Close disconnects every client and stops the HTTP server, if started.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.hub.shutdown) })
	<-s.hub.done

	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	hello, err := protocol.New(protocol.TypeHello, protocol.HelloPayload{Source: s.source, Version: s.version})
	if err != nil {
		conn.Close()
		return
	}
	data, _ := json.Marshal(hello)

	client := &wsClient{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		addr: r.RemoteAddr,
	}
	client.send <- data

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// recoverMiddleware keeps a panicking handler from taking the process down.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("handler panic", "path", r.URL.Path, "panic", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks the bearer token if one is configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("api request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

		if r.URL.Path == "/health" || s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		expected := "Bearer " + s.token
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte(expected)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
