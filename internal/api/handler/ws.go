package handler

import (
	"log"
	"net/http"

	"livechat/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The console is served from the CRM domain, which differs from the API host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades an authenticated attendant to the console WebSocket.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	id := attendantID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ERROR: WebSocket upgrade failed for attendant %s: %v", id, err)
		return
	}

	h.Hub.Register(chathub.NewWebSocketClient(h.Hub, id, conn, h.Localizer, h.lang(c)))
}
