// Package ws serves chat turns over a websocket, one connection per conversation.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/service"
	apperrors "emotion-character-demo/backend/pkg/errors"
	"emotion-character-demo/backend/pkg/logger"
	"emotion-character-demo/backend/pkg/metrics"
	"emotion-character-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 16 * 1024

	// queued turns per connection; further messages are rejected until one finishes
	turnQueue = 4
)

// TurnSender runs one chat turn
type TurnSender interface {
	SendMessage(ctx context.Context, req service.TurnRequest) (*service.TurnResult, error)
}

// ConversationLookup resolves a conversation the user owns
type ConversationLookup interface {
	Get(ctx context.Context, userID, conversationID uint) (*models.Conversation, error)
}

// Inbound is a client frame
type Inbound struct {
	Type    string `json:"type"` // chat, ping
	Message string `json:"message,omitempty"`
}

// Outbound is a server frame
type Outbound struct {
	Type   string              `json:"type"` // turn, typing, pong, error
	Result *service.TurnResult `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Hub tracks open connections so they can be closed on shutdown
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WSConnections.Inc()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		metrics.WSConnections.Dec()
	}
}

// Count returns the number of open connections
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll sends a going-away close frame to every client
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
}

type Handler struct {
	hub           *Hub
	turns         TurnSender
	conversations ConversationLookup
	upgrader      websocket.Upgrader
	log           *logger.Logger
}

func NewHandler(hub *Hub, turns TurnSender, conversations ConversationLookup, allowedOrigins []string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Handler{
		hub:           hub,
		turns:         turns,
		conversations: conversations,
		log:           log,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin:      originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// ServeConversation handles GET /ws/conversations/:id behind the JWT middleware
func (h *Handler) ServeConversation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		_ = c.Error(apperrors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		c.Abort()
		return
	}

	var uri struct {
		ID uint `uri:"id" binding:"required"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		_ = c.Error(apperrors.NewBadRequestError("INVALID_ID", "Invalid conversation id"))
		c.Abort()
		return
	}

	if _, err := h.conversations.Get(c.Request.Context(), userID, uri.ID); err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			_ = c.Error(apperrors.NewNotFoundError(service.CodeNotFound, "Conversation not found"))
		} else {
			_ = c.Error(err)
		}
		c.Abort()
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.log.Warn("WebSocket upgrade failed", "error", err.Error())
		return
	}

	clientID := uuid.New().String()
	client := &Client{
		ID:             clientID,
		UserID:         userID,
		ConversationID: uri.ID,
		Locale:         service.ResolveLocale(c.GetHeader("Accept-Language")),
		conn:           conn,
		send:           make(chan Outbound, 16),
		turns:          make(chan string, turnQueue),
		done:           make(chan struct{}),
		hub:            h.hub,
		sender:         h.turns,
		log:            logger.FromContext(c).WithConversation(uri.ID).With("client_id", clientID),
	}
	h.hub.add(client)
	client.log.Info("WebSocket client connected", "user_id", userID)

	// the request context ends when this handler returns
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	go client.writePump()
	go client.turnWorker(ctx)
	client.readPump(cancel)
}

// Client is one websocket connection bound to a conversation
type Client struct {
	ID             string
	UserID         uint
	ConversationID uint
	Locale         string

	conn      *websocket.Conn
	send      chan Outbound
	turns     chan string
	done      chan struct{}
	closeOnce sync.Once
	hub       *Hub
	sender    TurnSender
	log       *logger.Logger
}

func (c *Client) readPump(cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.hub.remove(c)
		c.shutdown()
		c.log.Info("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Inbound
		if err := c.conn.ReadJSON(&frame); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				c.push(Outbound{Type: "error", Error: "malformed frame"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("WebSocket read error", "error", err.Error())
			}
			return
		}

		switch frame.Type {
		case "ping":
			c.push(Outbound{Type: "pong"})
		case "chat", "":
			select {
			case c.turns <- frame.Message:
			default:
				c.push(Outbound{Type: "error", Error: "too many pending messages"})
			}
		default:
			c.push(Outbound{Type: "error", Error: "unknown frame type"})
		}
	}
}

// turnWorker runs queued turns one at a time, in arrival order
func (c *Client) turnWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.turns:
			c.push(Outbound{Type: "typing"})
			result, err := c.sender.SendMessage(ctx, service.TurnRequest{
				UserID:         c.UserID,
				ConversationID: c.ConversationID,
				Message:        msg,
				Locale:         c.Locale,
			})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.LogError(err, "Chat turn failed", "error_code", result.ErrorCode)
			}
			c.push(Outbound{Type: "turn", Result: result})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.log.Warn("WebSocket write error", "error", err.Error())
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) push(frame Outbound) {
	select {
	case c.send <- frame:
	case <-c.done:
	}
}

func (c *Client) close(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.shutdown()
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
