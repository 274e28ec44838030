package broadcast

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Defaults for HubConfig.
const (
	DefaultBufferSize   = 16
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 30 * time.Second
)

// HubConfig configures a Hub.
type HubConfig struct {
	// AllowedOrigin restricts browser origins; empty or "*" allows any.
	AllowedOrigin string
	// BufferSize is the per-client queue; events beyond it are dropped.
	BufferSize   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	Logger       *slog.Logger
}

// Hub serves websocket subscribers grouped by session id.
type Hub struct {
	cfg      HubConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]map[*subscriber]struct{}
	closed   bool
}

// Compile-time interface checks.
var (
	_ Publisher    = (*Hub)(nil)
	_ http.Handler = (*Hub)(nil)
)

// subscriber owns one connection. Only its writer goroutine writes to conn.
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// NewHub creates a Hub with defaults applied to cfg.
func NewHub(cfg HubConfig) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	h := &Hub{
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: make(map[string]map[*subscriber]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	allowed := h.cfg.AllowedOrigin
	if allowed == "" || allowed == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == allowed
}

// ServeHTTP upgrades the request and subscribes it to the session named by
// the sessionId query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, h.cfg.BufferSize),
		done: make(chan struct{}),
	}
	if !h.register(sessionID, sub) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}
	h.logger.Debug("subscriber connected", "session_id", sessionID)

	go h.writeLoop(sub)
	h.readLoop(sub)

	h.unregister(sessionID, sub)
	h.logger.Debug("subscriber disconnected", "session_id", sessionID)
}

// readLoop consumes control frames until the peer goes away.
func (h *Hub) readLoop(sub *subscriber) {
	defer sub.stop()

	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case msg := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				sub.stop()
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.stop()
				return
			}
		case <-sub.done:
			_ = sub.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (h *Hub) register(sessionID string, sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	subs, ok := h.sessions[sessionID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.sessions[sessionID] = subs
	}
	subs[sub] = struct{}{}
	return true
}

func (h *Hub) unregister(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.sessions[sessionID]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.sessions, sessionID)
	}
}

// Publish queues ev for every subscriber of sessionID. A subscriber whose
// buffer is full misses the event.
func (h *Hub) Publish(sessionID string, ev Event) {
	msg, err := encode(ev)
	if err != nil {
		h.logger.Error("encoding progress event", "job_id", ev.JobID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.sessions[sessionID] {
		select {
		case sub.send <- msg:
		case <-sub.done:
		default:
			h.logger.Warn("progress event dropped, subscriber too slow",
				"session_id", sessionID, "job_id", ev.JobID, "stage", ev.Stage)
		}
	}
}

// Subscribers returns the number of connections for sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, subs := range h.sessions {
		for sub := range subs {
			sub.stop()
		}
	}
}
