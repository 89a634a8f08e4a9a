// Package socket broadcasts engine events to map clients over websockets.
// The feed is one-way; clients only listen.
package socket

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"terraconquest/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans events out to every connected client. Publish never blocks the
// engines: the buffer absorbs bursts and overflow frames are dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex // per-conn write locks
	events  chan types.Event
	done    chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		events:  make(chan types.Event, 256),
		done:    make(chan struct{}),
	}
}

// Publish queues an event for broadcast.
func (h *Hub) Publish(e types.Event) {
	select {
	case h.events <- e:
	default:
		log.Printf("event feed full, dropping %s frame", e.Type)
	}
}

// Run pumps queued events to clients until Stop is called.
func (h *Hub) Run() {
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-h.done:
			return
		case e := <-h.events:
			h.broadcast(e)
		case <-pingTicker.C:
			h.ping()
		}
	}
}

func (h *Hub) Stop() { close(h.done) }

func (h *Hub) broadcast(e types.Event) {
	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.mu.RUnlock()

	for conn, mu := range conns {
		mu.Lock()
		err := conn.WriteJSON(e)
		mu.Unlock()
		if err != nil {
			h.drop(conn)
		}
	}
}

func (h *Hub) ping() {
	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.mu.RUnlock()

	for conn, mu := range conns {
		mu.Lock()
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		mu.Unlock()
		if err != nil {
			h.drop(conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// HandleHTTP upgrades the request and registers the client.
func (h *Hub) HandleHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	// Drain reads so close frames and pongs are processed; the feed itself
	// is one-way.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

// ClientCount reports the number of connected feed clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
