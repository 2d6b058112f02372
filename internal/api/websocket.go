package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/chicoferreira/contratopublico-go/internal/models"
)

// hub fans scrape-progress events out to every connected WebSocket
// client. Clients are write-only: anything a client sends after the
// initial upgrade is read only to detect disconnection and discarded.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]bool)}
}

func (h *hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ScrapeProgressEvent is the payload broadcast to /api/ws/progress
// subscribers every time the statistics aggregator refreshes, giving
// dashboards a cheap way to show the rollup changing without polling.
type ScrapeProgressEvent struct {
	Type                string `json:"type"`
	TotalSpentLast7Days int64  `json:"totalSpentLast7Days"`
	ContractsLast7Days  int64  `json:"contractsLast7Days"`
	ContractsLast30Days int64  `json:"contractsLast30Days"`
}

// ScrapePageEvent is the payload broadcast to /api/ws/progress
// subscribers after each page the running scrape pipeline processes:
// the page cursor, how many contract IDs it yielded, and the last
// error encountered fetching it, if any.
type ScrapePageEvent struct {
	Type      string `json:"type"`
	Page      uint64 `json:"page"`
	SavedIDs  int    `json:"savedIds"`
	LastError string `json:"lastError,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("api: websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 16)}
	s.hub.register(client)

	go func() {
		defer func() {
			s.hub.unregister(client)
			conn.Close()
		}()
		for msg := range client.send {
			w, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			w.Close()
		}
		conn.WriteMessage(websocket.CloseMessage, []byte{})
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// BroadcastRollup publishes rollup to every connected /api/ws/progress
// client. Registered as the stats.Aggregator's OnRefresh callback.
func (s *Server) BroadcastRollup(rollup models.StatisticsRollup) {
	msg := ScrapeProgressEvent{
		Type:                "rollup",
		TotalSpentLast7Days: rollup.TotalSpentLast7Days,
		ContractsLast7Days:  rollup.ContractsLast7Days,
		ContractsLast30Days: rollup.ContractsLast30Days,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.hub.broadcast(data)
}

// BroadcastScrapePage publishes one scrape.Progress event to every
// connected /api/ws/progress client. Called from a
// scrape.Config.OnProgress hook with the Progress event's fields.
func (s *Server) BroadcastScrapePage(page uint64, savedIDs int, lastError string) {
	msg := ScrapePageEvent{
		Type:      "scrape_page",
		Page:      page,
		SavedIDs:  savedIDs,
		LastError: lastError,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.hub.broadcast(data)
}
