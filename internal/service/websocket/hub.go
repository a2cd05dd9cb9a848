// Package websocket fans suggestion messages out to connected curator viewers.
package websocket

import (
	"context"
	"sync"
	"time"

	"photocurator/internal/logger"

	"github.com/gorilla/websocket"
)

// DefaultWriteWait bounds a single write to a viewer.
const DefaultWriteWait = 10 * time.Second

type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
	writeWait  time.Duration
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
		writeWait:  DefaultWriteWait,
	}
}

// Run serves register/unregister/broadcast until ctx is cancelled, then
// closes every remaining client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(h.writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds a client. It is a no-op once the hub has stopped.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends message to every connected client. Returns false if the
// hub has stopped.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	case <-h.done:
		return false
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
