package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveSystem(h *SystemHandler, path string) *httptest.ResponseRecorder {
	engine := gin.New()
	engine.GET("/health", h.Health)
	engine.GET("/system/info", h.Info)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSystemHandler_Info(t *testing.T) {
	w := serveSystem(NewSystemHandler("1.2.3", nil), "/system/info")
	require.Equal(t, http.StatusOK, w.Code)

	info := decodeData[SystemInfoResponse](t, w)
	assert.Equal(t, "omnisync", info.Name)
	assert.Equal(t, "1.2.3", info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}

func TestSystemHandler_Health(t *testing.T) {
	ok := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	t.Run("all dependencies up", func(t *testing.T) {
		w := serveSystem(NewSystemHandler("dev", map[string]Pinger{"database": ok, "redis": nil}), "/health")
		require.Equal(t, http.StatusOK, w.Code)
		health := decodeData[HealthResponse](t, w)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, map[string]string{"database": "ok"}, health.Checks, "nil checks are skipped")
	})

	t.Run("failing dependency", func(t *testing.T) {
		w := serveSystem(NewSystemHandler("dev", map[string]Pinger{"database": ok, "redis": down}), "/health")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		env := decode(t, w)
		assert.False(t, env.Success)
		assert.Contains(t, string(env.Data), `"status":"degraded"`)
		assert.Contains(t, string(env.Data), "dial tcp: refused")
	})
}
