package api

import (
	"errors"
	"net/http"
	"strconv"

	"emotion-character-demo/backend/internal/service"
	apperrors "emotion-character-demo/backend/pkg/errors"
	"emotion-character-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// toAppError maps service errors onto the HTTP error envelope
func toAppError(err error) *apperrors.AppError {
	var (
		validation *service.ValidationError
		credits    *service.InsufficientCreditsError
		transient  *service.TransientGenerationError
		permanent  *service.PermanentGenerationError
	)
	switch {
	case errors.As(err, &validation):
		return apperrors.BadRequestWithDetails(service.CodeValidation, "Invalid request", gin.H{"reason": validation.Reason})
	case errors.Is(err, service.ErrConversationNotFound):
		return apperrors.NewNotFoundError(service.CodeNotFound, "Conversation not found")
	case errors.Is(err, service.ErrCharacterNotFound):
		return apperrors.NewNotFoundError(service.CodeNotFound, "Character not found")
	case errors.Is(err, service.ErrEmotionNotFound):
		return apperrors.NewNotFoundError(service.CodeNotFound, "Emotion not found")
	case errors.Is(err, service.ErrGenreNotFound):
		return apperrors.NewNotFoundError(service.CodeNotFound, "Genre not found")
	case errors.As(err, &credits):
		return apperrors.NewPaymentRequiredError(service.CodeInsufficientCredits, "Insufficient credits").
			WithDetails(gin.H{"balance": credits.Balance, "required": credits.Required})
	case errors.As(err, &transient), errors.As(err, &permanent):
		return apperrors.NewBadGatewayError(service.ErrorCode(err), "Character reply failed")
	default:
		return apperrors.FromError(err)
	}
}

// abortWithError hands err to the error middleware
func abortWithError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.Unwrap() == nil && error(appErr) != err {
		appErr = appErr.WithCause(err)
	}
	_ = c.Error(appErr)
	c.Abort()
}

// TurnStatus is the HTTP status of a chat turn outcome
func TurnStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return apperrors.GetStatusCode(toAppError(err))
}

func currentUser(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		_ = c.Error(apperrors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		c.Abort()
	}
	return id, ok
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		_ = c.Error(apperrors.BadRequestWithDetails("INVALID_ID", "Invalid "+name, gin.H{"param": name}))
		c.Abort()
		return 0, false
	}
	return uint(id), true
}

func queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		_ = c.Error(apperrors.BadRequestWithDetails("INVALID_QUERY", "Invalid "+name, gin.H{"param": name}))
		c.Abort()
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(apperrors.BadRequestWithDetails("INVALID_BODY", "Invalid request body", err.Error()))
		c.Abort()
		return false
	}
	return true
}
