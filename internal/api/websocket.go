package api

import (
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// activeStreams tracks how many /stream connections are open right now, so
// handleStream can report an accurate gauge instead of a fixed 0/1.
var activeStreams int64

// MaxWSConnectionsPerIP is the maximum concurrent battle-log streams
// allowed from a single IP, enforced by streamLimiter below.
const MaxWSConnectionsPerIP = 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("[api] websocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// streamLimiter guards concurrent /stream connections per IP. It is
// package level (rather than threaded through RouterConfig); handleStream
// is its only user, and it carries no battle-specific state of its own.
var streamLimiter = NewWebSocketRateLimiter(MaxWSConnectionsPerIP)

const streamPollInterval = 150 * time.Millisecond

// handleStream handles GET /battles/{id}/stream: it upgrades to a
// WebSocket and pushes newly produced log entries for the requested
// perspective as they appear, until the battle ends or the client
// disconnects. This is the push counterpart to the long-poll
// GET /battles/{id}/log in handlers.go.
func (h *routerHandlers) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	host, ok := h.registry.Get(id)
	if !ok {
		writeError(w, "no such battle", http.StatusNotFound)
		return
	}
	side := sideFromQuery(r)

	ip := GetClientIP(r)
	if !streamLimiter.Allow(ip) {
		RecordConnectionRejected("ws_limit")
		http.Error(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}
	defer streamLimiter.Release(ip)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	UpdateWSConnections(int(atomic.AddInt64(&activeStreams, 1)))
	defer func() { UpdateWSConnections(int(atomic.AddInt64(&activeStreams, -1))) }()

	// Drain whatever was already logged before this client connected, so a
	// spectator joining mid-battle isn't left looking at an empty feed.
	if backlog := host.FullLog(side); len(backlog) > 0 {
		if err := conn.WriteJSON(map[string]interface{}{"entries": backlog, "ended": host.Ended()}); err != nil {
			return
		}
	}

	// A read goroutine exists solely to notice the client closing the
	// connection; this stream accepts no client-sent commands.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			entries := host.NewLogs(side)
			if len(entries) == 0 && !host.Ended() {
				continue
			}
			IncrementWSMessages()
			if err := conn.WriteJSON(map[string]interface{}{"entries": entries, "ended": host.Ended()}); err != nil {
				return
			}
			if host.Ended() {
				return
			}
		}
	}
}
