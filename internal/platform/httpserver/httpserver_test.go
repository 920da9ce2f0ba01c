package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"persondir/internal/platform/config"
)

func TestNewUsesServerConfig(t *testing.T) {
	cfg := config.Default().Server
	h := http.NotFoundHandler()

	srv := New(cfg, h)

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, cfg.ReadHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Equal(t, cfg.IdleTimeout, srv.IdleTimeout)
	assert.Greater(t, srv.WriteTimeout, cfg.ReadTimeout)
}
