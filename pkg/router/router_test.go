package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"emotion-character-demo/backend/ai"
	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/service"
	"emotion-character-demo/backend/internal/testutil"
	"emotion-character-demo/backend/pkg/config"
	"emotion-character-demo/backend/pkg/di"
	"emotion-character-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, req ai.Request) (*ai.Response, error) {
	return &ai.Response{Text: "I hear you: " + req.UserMessage, Model: "test"}, nil
}

type testEnv struct {
	router    *Router
	container *di.Container
	token     string
	character *models.Character
}

func newTestEnv(t *testing.T, schemaPath ...string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Load()
	cfg.JWT.Secret = "router-test-secret"
	cfg.Lock.Backend = "memory"
	cfg.Vault.Enabled = false
	cfg.Security.RateLimit = 1000
	cfg.Security.RateLimitBurst = 1000
	cfg.Generation.BackoffBase = time.Millisecond
	cfg.Generation.BackoffMax = time.Millisecond

	db := testutil.NewDB(t)
	genre := testutil.Genre(t, db, "healing")
	character := testutil.Character(t, db, "Luna", genre.ID)

	container, err := di.New(cfg, db, logger.Nop(), di.WithGenerator(echoGenerator{}))
	require.NoError(t, err)
	t.Cleanup(container.Close)
	container.Health.RunChecks(context.Background())

	r := New(container)
	for _, path := range schemaPath {
		r.AddOpenAPIValidation(path)
	}
	r.SetupRoutes()

	token, err := container.JWTService.GenerateToken(42, "user@example.com")
	require.NoError(t, err)

	return &testEnv{router: r, container: container, token: token, character: character}
}

func (e *testEnv) do(method, path, body string, auth bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.router.Engine.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "database")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = env.do(http.MethodGet, "/api/v1/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/characters", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/v1/characters", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Luna")
}

func TestChatTurnEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, fmt.Sprintf("/api/v1/characters/%d/conversations", env.character.ID), "", true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var started struct {
		Conversation models.Conversation `json:"conversation"`
		Created      bool                `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.True(t, started.Created)

	path := fmt.Sprintf("/api/v1/conversations/%d/messages", started.Conversation.ID)
	w = env.do(http.MethodPost, path, `{"message":"I had a rough day"}`, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result service.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "I hear you: I had a rough day", result.AIResponse)
	assert.Equal(t, env.container.Config.Credits.InitialGrant-env.container.Config.Credits.TurnCost, result.RemainingCredits)

	w = env.do(http.MethodPost, path, `{"message":"   "}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, path, "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var transcript struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &transcript))
	assert.Len(t, transcript.Messages, 2)

	w = env.do(http.MethodGet, "/api/v1/credits", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var balance service.CreditBalance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &balance))
	assert.Equal(t, result.RemainingCredits, balance.FreeCredits)
}

func TestUnknownConversationIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/conversations/999/messages", `{"message":"hi"}`, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpenAPIValidation(t *testing.T) {
	env := newTestEnv(t, "../../api/openapi.yaml")

	w := env.do(http.MethodPost, "/api/v1/characters", `{"description":"no name"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")

	w = env.do(http.MethodGet, "/api/docs/openapi.yaml", "", false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, fmt.Sprintf("/api/v1/characters/%d/conversations", env.character.ID), "", true)
	assert.Equal(t, http.StatusCreated, w.Code)
}
