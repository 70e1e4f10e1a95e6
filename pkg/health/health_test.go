package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"emotion-character-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerCriticalComponents(t *testing.T) {
	c := NewChecker(logger.Nop(), time.Minute)

	dbErr := errors.New("connection refused")
	c.RegisterPing("database", true, func(context.Context) error { return dbErr })
	c.RegisterPing("redis", false, func(context.Context) error { return errors.New("down") })

	var seen []bool
	c.OnChange(func(healthy bool) { seen = append(seen, healthy) })

	c.RunChecks(context.Background())
	assert.False(t, c.IsSystemHealthy())
	assert.Equal(t, []bool{false}, seen)

	status := c.GetStatus()
	require.Contains(t, status, "database")
	assert.Equal(t, StatusDown, status["database"].Status)
	assert.Equal(t, "connection refused", status["database"].Error)
	assert.Equal(t, StatusUp, status["self"].Status)

	dbErr = nil
	c.RunChecks(context.Background())
	// redis is not critical
	assert.True(t, c.IsSystemHealthy())
	assert.Equal(t, []bool{false, true}, seen)
}

func TestCheckerHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewChecker(logger.Nop(), time.Minute)
	c.RegisterPing("database", true, func(context.Context) error { return nil })

	r := gin.New()
	r.GET("/health", c.Handler("test"))

	// not checked yet: the critical component still reads as down
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c.RunChecks(context.Background())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"database"`)
}
