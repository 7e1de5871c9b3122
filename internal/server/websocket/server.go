// Package websocket implements the WebSocket server for real-time events.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pathwatch/pathwatch/internal/adapters/journal"
	"github.com/pathwatch/pathwatch/internal/domain/events"
	"github.com/pathwatch/pathwatch/internal/domain/ports"
	"github.com/pathwatch/pathwatch/internal/hub"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 15 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 90 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Send buffer size per client. Sized for bursts from recursive
	// directory creation.
	sendBufferSize = 1024

	// Application-level heartbeat interval.
	heartbeatInterval = 30 * time.Second

	// Default number of journal entries returned by /events/recent.
	defaultRecentLimit = 100
	maxRecentLimit     = 1000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Event stream is read-only; origin checks are left to a fronting proxy.
		return true
	},
}

// RecentProvider serves journaled events for the replay endpoint.
type RecentProvider interface {
	Recent(limit int) ([]journal.Entry, error)
}

// clientCommand is the JSON shape of messages sent by clients over the
// WebSocket connection to scope their subscription.
type clientCommand struct {
	Action string `json:"action"`
	Root   string `json:"root,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// Server is the WebSocket event-stream server.
type Server struct {
	addr   string
	server *http.Server
	hub    ports.EventHub
	recent RecentProvider

	mu      sync.RWMutex
	clients map[string]*Client
	filters map[string]*hub.FilteredSubscriber

	// Heartbeat management
	heartbeatDone chan struct{}
	heartbeatSeq  int64
	startTime     time.Time

	stopOnce sync.Once
	stopErr  error
}

// NewServer creates a new WebSocket server.
func NewServer(host string, port int, eventHub ports.EventHub, recent RecentProvider) *Server {
	addr := fmt.Sprintf("%s:%d", host, port)
	s := &Server{
		addr:          addr,
		hub:           eventHub,
		recent:        recent,
		clients:       make(map[string]*Client),
		filters:       make(map[string]*hub.FilteredSubscriber),
		heartbeatDone: make(chan struct{}),
		startTime:     time.Now(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleWebSocket)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/events/recent", s.handleRecent).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:    addr,
		Handler: router,
		// No ReadTimeout/WriteTimeout: those apply to the underlying HTTP
		// connection and would sever long-lived WebSocket streams. The
		// read/write pumps manage their own deadlines.
	}

	return s
}

// Start starts the WebSocket server.
func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("WebSocket server starting")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("WebSocket server error")
		}
	}()

	go s.heartbeatLoop()

	return nil
}

// Stop gracefully stops the WebSocket server. Stop is idempotent.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		log.Info().Msg("WebSocket server stopping")

		close(s.heartbeatDone)

		s.mu.Lock()
		for _, client := range s.clients {
			client.Close()
		}
		s.clients = make(map[string]*Client)
		s.filters = make(map[string]*hub.FilteredSubscriber)
		s.mu.Unlock()

		s.stopErr = s.server.Shutdown(ctx)
	})
	return s.stopErr
}

// handleWebSocket handles WebSocket upgrade requests.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(conn, s.handleCommand, func(id string) {
		if s.hub != nil {
			s.hub.Unsubscribe(id)
		}
		s.removeClient(id)
	})

	// Subscribe through a root filter so clients can narrow their stream
	filtered := hub.NewFilteredSubscriber(NewClientSubscriber(client))

	s.mu.Lock()
	s.clients[client.ID()] = client
	s.filters[client.ID()] = filtered
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Subscribe(filtered)
	}

	log.Info().
		Str("client_id", client.ID()).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("client connected")

	client.Start()
}

// handleCommand processes subscription commands from a connected client.
func (s *Server) handleCommand(clientID string, message []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Debug().Err(err).Str("client_id", clientID).Msg("invalid client command")
		return
	}

	s.mu.RLock()
	filtered := s.filters[clientID]
	s.mu.RUnlock()
	if filtered == nil {
		return
	}

	switch cmd.Action {
	case "subscribe_root":
		if cmd.Root != "" {
			filtered.SubscribeRoot(cmd.Root)
		}
	case "unsubscribe_root":
		if cmd.Root != "" {
			filtered.UnsubscribeRoot(cmd.Root)
		}
	case "subscribe_all":
		filtered.SubscribeAll()
	case "get_recent":
		s.sendRecent(clientID, cmd.Limit)
	default:
		log.Debug().Str("client_id", clientID).Str("action", cmd.Action).Msg("unknown client command")
	}
}

// handleHealth reports server liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "ok",
		"clients":        s.ClientCount(),
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	})
}

// handleRecent serves journaled events, newest first.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.recent == nil {
		http.Error(w, "event journal disabled", http.StatusNotFound)
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var parsed int
		if _, err := fmt.Sscanf(raw, "%d", &parsed); err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	entries, err := s.recent.Recent(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to read journal")
		http.Error(w, "failed to read journal", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"events": entries,
	})
}

// sendRecent replays journaled events to one client as a recent_events
// envelope. Clients without a journal get an empty batch.
func (s *Server) sendRecent(clientID string, limit int) {
	client := s.GetClient(clientID)
	if client == nil {
		return
	}

	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	entries := []journal.Entry{}
	if s.recent != nil {
		got, err := s.recent.Recent(limit)
		if err != nil {
			log.Error().Err(err).Str("client_id", clientID).Msg("failed to read journal")
			return
		}
		if got != nil {
			entries = got
		}
	}

	event := events.NewEvent(events.EventTypeRecentEvents, map[string]interface{}{
		"events": entries,
	})
	data, err := event.ToJSON()
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize recent events")
		return
	}
	client.Send(data)
}

// removeClient removes a client from the server.
func (s *Server) removeClient(id string) {
	s.mu.Lock()
	delete(s.clients, id)
	delete(s.filters, id)
	s.mu.Unlock()
	log.Info().Str("client_id", id).Msg("client disconnected")
}

// Broadcast sends a message to all connected clients.
func (s *Server) Broadcast(message []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.clients {
		client.Send(message)
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// GetClient returns a client by ID.
func (s *Server) GetClient(id string) *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients[id]
}

// heartbeatLoop broadcasts periodic heartbeat events to all connected clients.
func (s *Server) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	log.Debug().Dur("interval", heartbeatInterval).Msg("heartbeat loop started")

	for {
		select {
		case <-s.heartbeatDone:
			log.Debug().Msg("heartbeat loop stopped")
			return

		case <-ticker.C:
			s.broadcastHeartbeat()
		}
	}
}

// broadcastHeartbeat sends a heartbeat event to all connected clients.
func (s *Server) broadcastHeartbeat() {
	clientCount := s.ClientCount()
	if clientCount == 0 {
		return
	}

	seq := atomic.AddInt64(&s.heartbeatSeq, 1)
	uptime := int64(time.Since(s.startTime).Seconds())
	heartbeat := events.NewHeartbeatEvent(seq, uptime, clientCount)

	data, err := heartbeat.ToJSON()
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize heartbeat")
		return
	}

	s.Broadcast(data)
	log.Trace().Int64("seq", seq).Int("clients", clientCount).Msg("heartbeat sent")
}
