package api

import (
	"net/http"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/service"

	"github.com/gin-gonic/gin"
)

type EmotionHandler struct {
	emotions        *service.EmotionService
	recommendations *service.RecommendationService
	defaultLimit    int
}

func NewEmotionHandler(emotions *service.EmotionService, recommendations *service.RecommendationService, defaultLimit int) *EmotionHandler {
	return &EmotionHandler{
		emotions:        emotions,
		recommendations: recommendations,
		defaultLimit:    defaultLimit,
	}
}

func (h *EmotionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	emotions := rg.Group("/emotions")
	{
		emotions.GET("", h.ListEmotions)
		emotions.GET("/entries", h.History)
		emotions.POST("/entries", h.SaveEntry)
		emotions.GET("/:id/recommendations", h.Recommendations)
	}
	rg.GET("/genres", h.ListGenres)
}

func (h *EmotionHandler) ListEmotions(c *gin.Context) {
	emotions, err := h.emotions.ListEmotions(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"emotions": emotions})
}

func (h *EmotionHandler) ListGenres(c *gin.Context) {
	genres, err := h.emotions.ListGenres(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres})
}

// Recommendations handles GET /emotions/:id/recommendations?limit=
func (h *EmotionHandler) Recommendations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	emotionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	recs, err := h.recommendations.RecommendForEmotion(c.Request.Context(), userID, emotionID, queryInt(c, "limit", h.defaultLimit))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *EmotionHandler) SaveEntry(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.SaveEmotionEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, created, err := h.emotions.SaveEntry(c.Request.Context(), userID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, entry)
}

// History handles GET /emotions/entries?page=
func (h *EmotionHandler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	history, err := h.emotions.History(c.Request.Context(), userID, queryInt(c, "page", 1))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
