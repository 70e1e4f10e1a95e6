package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"emotion-character-demo/backend/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestTurnStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, http.StatusOK},
		{"validation", &service.ValidationError{Reason: "empty"}, http.StatusBadRequest},
		{"not found", service.ErrConversationNotFound, http.StatusNotFound},
		{"credits", &service.InsufficientCreditsError{Balance: 0, Required: 1}, http.StatusPaymentRequired},
		{"retries exhausted", &service.TransientGenerationError{Attempts: 3, Err: errors.New("503")}, http.StatusBadGateway},
		{"permanent", fmt.Errorf("turn: %w", &service.PermanentGenerationError{Attempt: 1, Err: errors.New("400")}), http.StatusBadGateway},
		{"canceled", context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TurnStatus(tt.err))
		})
	}
}

func TestGenerationFailureMapsToBadGateway(t *testing.T) {
	appErr := toAppError(&service.PermanentGenerationError{Attempt: 1, Err: errors.New("secret upstream detail")})

	assert.Equal(t, http.StatusBadGateway, appErr.StatusCode)
	assert.Equal(t, service.CodeAPIError, appErr.Code)
	assert.NotContains(t, appErr.Message, "secret upstream detail")
}
