package api

import (
	"net/http"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/service"

	"github.com/gin-gonic/gin"
)

type CharacterHandler struct {
	characters      *service.CharacterService
	recommendations *service.RecommendationService
	defaultLimit    int
}

func NewCharacterHandler(characters *service.CharacterService, recommendations *service.RecommendationService, defaultLimit int) *CharacterHandler {
	return &CharacterHandler{
		characters:      characters,
		recommendations: recommendations,
		defaultLimit:    defaultLimit,
	}
}

func (h *CharacterHandler) RegisterRoutes(rg *gin.RouterGroup) {
	characters := rg.Group("/characters")
	{
		characters.GET("", h.ListCharacters)
		characters.GET("/recommended", h.RecommendedCharacters)
		characters.GET("/:id", h.GetCharacter)
		characters.POST("", h.CreateCharacter)
		characters.POST("/:id/ratings", h.RateCharacter)
	}
}

// ListCharacters handles GET /characters?genre=&q=
func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	genreID, ok := queryID(c, "genre")
	if !ok {
		return
	}

	characters, err := h.characters.List(c.Request.Context(), genreID, c.Query("q"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": characters})
}

// RecommendedCharacters handles GET /characters/recommended?emotion_id=&genre_id=&limit=
func (h *CharacterHandler) RecommendedCharacters(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	emotionID, ok := queryID(c, "emotion_id")
	if !ok {
		return
	}
	genreID, ok := queryID(c, "genre_id")
	if !ok {
		return
	}

	ranked, err := h.recommendations.RecommendCharacters(c.Request.Context(), userID, emotionID, genreID, queryInt(c, "limit", h.defaultLimit))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": ranked})
}

func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	character, err := h.characters.Get(c.Request.Context(), userID, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, character)
}

func (h *CharacterHandler) CreateCharacter(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateCharacterRequest
	if !bindJSON(c, &req) {
		return
	}

	character, err := h.characters.Create(c.Request.Context(), userID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, character)
}

type rateRequest struct {
	Rating int    `json:"rating" binding:"required"`
	Review string `json:"review"`
}

func (h *CharacterHandler) RateCharacter(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req rateRequest
	if !bindJSON(c, &req) {
		return
	}

	character, err := h.characters.Rate(c.Request.Context(), userID, id, req.Rating, req.Review)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"average_rating": character.AverageRating,
		"rating_count":   character.RatingCount,
	})
}
