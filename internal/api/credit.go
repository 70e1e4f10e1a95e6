package api

import (
	"net/http"

	"emotion-character-demo/backend/internal/service"

	"github.com/gin-gonic/gin"
)

type CreditHandler struct {
	credits *service.CreditService
}

func NewCreditHandler(credits *service.CreditService) *CreditHandler {
	return &CreditHandler{credits: credits}
}

func (h *CreditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/credits", h.Balance)
}

func (h *CreditHandler) Balance(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	balance, err := h.credits.Balance(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}
