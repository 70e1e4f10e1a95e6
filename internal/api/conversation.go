package api

import (
	"context"
	"net/http"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/service"
	"emotion-character-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TurnSender runs one chat turn
type TurnSender interface {
	SendMessage(ctx context.Context, req service.TurnRequest) (*service.TurnResult, error)
}

type ConversationHandler struct {
	conversations *service.ConversationService
	turns         TurnSender
}

func NewConversationHandler(conversations *service.ConversationService, turns TurnSender) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, turns: turns}
}

func (h *ConversationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/characters/:id/conversations", h.StartConversation)

	conversations := rg.Group("/conversations")
	{
		conversations.GET("", h.ListConversations)
		conversations.GET("/:id/messages", h.ListMessages)
		conversations.POST("/:id/messages", h.SendMessage)
		conversations.POST("/:id/end", h.EndConversation)
	}
}

// StartConversation handles POST /characters/:id/conversations
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	characterID, ok := pathID(c, "id")
	if !ok {
		return
	}

	conv, created, err := h.conversations.Start(c.Request.Context(), userID, characterID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conv, "created": created})
}

func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	convs, err := h.conversations.List(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (h *ConversationHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	messages, err := h.conversations.Messages(c.Request.Context(), userID, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage handles POST /conversations/:id/messages. The body is always a
// turn result; the status reflects its outcome.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.turns.SendMessage(c.Request.Context(), service.TurnRequest{
		UserID:         userID,
		ConversationID: id,
		Message:        req.Message,
		Locale:         service.ResolveLocale(c.GetHeader("Accept-Language")),
	})
	if err != nil {
		logger.FromContext(c).LogError(err, "Chat turn failed",
			"conversation_id", id,
			"error_code", result.ErrorCode,
		)
	}
	c.JSON(TurnStatus(err), result)
}

func (h *ConversationHandler) EndConversation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	conv, err := h.conversations.End(c.Request.Context(), userID, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}
