// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "spectrum/internal/log"
)

// WebSocketTransport broadcasts frames as JSON to all connected clients.
// Sends are queued on a buffered channel and dropped when the queue is
// full, so a slow client never stalls the publisher.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
}

// NewWebSocketTransport creates the transport and starts its HTTP server
// on addr, serving WebSocket upgrades at /spectrum.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	t := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // visualizers connect from arbitrary origins
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
	}
	t.start()
	return t
}

func (t *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/spectrum", t.handleWebSocket)
	t.server = &http.Server{Addr: t.addr, Handler: mux}

	go func() {
		applog.Infof("Transport: WebSocket server listening on %s", t.addr)
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("Transport: WebSocket server error: %v", err)
		}
	}()
	go t.handleBroadcasts()
}

func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("Transport: WebSocket upgrade error: %v", err)
		return
	}

	t.clientsMu.Lock()
	t.clients[conn] = true
	total := len(t.clients)
	t.clientsMu.Unlock()
	applog.Infof("Transport: client connected, total: %d", total)

	go func() {
		// Block until the client goes away.
		_, _, err := conn.ReadMessage()
		if err != nil {
			t.clientsMu.Lock()
			delete(t.clients, conn)
			total := len(t.clients)
			t.clientsMu.Unlock()
			conn.Close()
			applog.Infof("Transport: client disconnected, total: %d", total)
		}
	}()
}

func (t *WebSocketTransport) handleBroadcasts() {
	for data := range t.broadcast {
		t.clientsMu.Lock()
		for client := range t.clients {
			if err := client.WriteJSON(data); err != nil {
				applog.Debugf("Transport: dropping client: %v", err)
				client.Close()
				delete(t.clients, client)
			}
		}
		t.clientsMu.Unlock()
	}
}

// Send queues a frame for broadcast. Frames are dropped silently when the
// queue is full.
func (t *WebSocketTransport) Send(data any) error {
	select {
	case t.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects all clients and shuts down the server.
func (t *WebSocketTransport) Close() error {
	t.clientsMu.Lock()
	for client := range t.clients {
		client.Close()
	}
	t.clients = make(map[*websocket.Conn]bool)
	t.clientsMu.Unlock()

	if t.server != nil {
		return t.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
