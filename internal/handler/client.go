package handler

import (
	"net/http"
	"time"

	"photocurator/internal/logger"
	"photocurator/internal/service"

	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	writeWait    = 10 * time.Second
)

// Upgrader upgrades HTTP connections to WebSocket. A nil CheckOrigin rejects
// requests whose Origin host differs from the request Host.
var Upgrader = websocket.Upgrader{}

// ViewWebsocketHandler registers a curator viewer in the hub. The hub owns
// data writes; this handler only reads (to notice disconnects) and pings.
func ViewWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub := manager.GetWebsocketService()
		hub.Register(connection)
		defer hub.Unregister(connection)

		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(pongWait))
		connection.SetPongHandler(func(string) error {
			return connection.SetReadDeadline(time.Now().Add(pongWait))
		})

		stop := make(chan struct{})
		defer close(stop)
		go keepAlive(connection, stop)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected: %v", err)
				}
				return
			}
		}
	}
}

// keepAlive pings the viewer until stop is closed. WriteControl may run
// concurrently with the hub's writes.
func keepAlive(connection *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := connection.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
