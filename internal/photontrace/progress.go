package photontrace

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ProgressFrame is one JSON progress update broadcast to every connected
// websocket client (spec Section 4.15).
type ProgressFrame struct {
	T               int   `json:"t"`
	PhotonsLaunched int64 `json:"photonsLaunched"`
	PhotonsDetected int64 `json:"photonsDetected"`
	ElapsedMs       int64 `json:"elapsedMs,omitempty"`
}

var progressUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressServer is an optional, purely observational websocket broadcaster:
// a write failure to one client is logged and that client is dropped, never
// fed back into the simulation (mirrors onuse-worldgenerator_go's
// broadcastMeshData fire-and-forget loop, generalized from a periodic push
// loop to an on-demand Broadcast call driven by the Driver's own progress
// counter).
type ProgressServer struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

// NewProgressServer constructs an empty ProgressServer.
func NewProgressServer() *ProgressServer {
	return &ProgressServer{clients: make(map[*websocket.Conn]*sync.Mutex)}
}

// ServeHTTP upgrades the connection and registers it as a broadcast target.
func (s *ProgressServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := progressUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("photontrace: progress websocket upgrade failed:", err)
		return
	}
	s.mu.Lock()
	s.clients[conn] = &sync.Mutex{}
	s.mu.Unlock()
}

// Broadcast sends frame as JSON to every connected client, dropping any
// client whose write fails.
func (s *ProgressServer) Broadcast(frame ProgressFrame) {
	s.mu.RLock()
	toRemove := make([]*websocket.Conn, 0)
	for conn, wmu := range s.clients {
		wmu.Lock()
		err := conn.WriteJSON(frame)
		wmu.Unlock()
		if err != nil {
			log.Println("photontrace: progress websocket write error:", err)
			conn.Close()
			toRemove = append(toRemove, conn)
		}
	}
	s.mu.RUnlock()

	if len(toRemove) == 0 {
		return
	}
	s.mu.Lock()
	for _, conn := range toRemove {
		delete(s.clients, conn)
	}
	s.mu.Unlock()
}

// ListenAndServe starts an HTTP server at addr with the server mounted at
// "/progress". Blocks until the server exits; callers typically run this in
// its own goroutine.
func (s *ProgressServer) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/progress", s)
	return http.ListenAndServe(addr, mux)
}
