package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type EventsHandler struct {
	hub    *services.EventHub
	logger *logrus.Logger
}

func NewEventsHandler(hub *services.EventHub, logger *logrus.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

// Subscribe upgrades the connection and streams lineup and contest events
// until the client disconnects.
func (h *EventsHandler) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade websocket connection")
		return
	}

	h.hub.Register(conn)
	h.logger.WithField("remote", conn.RemoteAddr().String()).Info("Event subscriber connected")

	// Drain reads so pings and close frames are processed; unregister on
	// the first read error.
	go func() {
		defer h.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
