package feed

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"appointly/internal/domain"
	"appointly/internal/logger"
	"appointly/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed only carries public availability changes.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type subscribedMessage struct {
	Type       string `json:"type"`
	ProviderID int64  `json:"provider_id"`
	Date       string `json:"date,omitempty"`
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws/providers/:id/availability", h.Subscribe)
}

// Subscribe upgrades to a websocket that receives an event every time a
// booking of the provider changes. ?date=yyyy-MM-dd narrows it to one day.
//
// Endpoint: GET /ws/providers/:id/availability?date=2026-03-02
func (h *Handler) Subscribe(c *gin.Context) {
	providerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || providerID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid provider ID")
		return
	}
	date := c.Query("date")
	if date != "" {
		if _, err := domain.ParseDate(date); err != nil {
			response.FromError(c, err)
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := h.hub.subscribe(providerID, date)
	hello, _ := json.Marshal(subscribedMessage{Type: "subscribed", ProviderID: providerID, Date: date})
	select {
	case sub.send <- hello:
	default:
	}

	go writeLoop(conn, sub)
	readLoop(conn)

	h.hub.unsubscribe(sub)
	_ = conn.Close()
}

// readLoop keeps the read side alive for pong handling until the peer goes away.
func readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Get().Debug().Err(err).Msg("feed: connection closed")
			}
			return
		}
	}
}

// writeLoop is the only writer of conn.
func writeLoop(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
