package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), GinMiddleware(logger), Recovery(logger))
	r.GET("/ok", func(c *gin.Context) {
		FromContext(c).Info("inside handler")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/missing", func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"error": "nope"}) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestGinMiddlewareLogsWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newRouter(zap.New(core))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])

	inside := logs.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "/ok", inside[0].ContextMap()["path"])
}

func TestGinMiddlewareLevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newRouter(zap.New(core))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestRecoveryReturns500(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newRouter(zap.New(core))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}
