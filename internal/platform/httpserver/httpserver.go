package httpserver

import (
	"net/http"

	"persondir/internal/platform/config"
)

// New builds the directory's HTTP server. WriteTimeout must stay above the
// handler timeout so a timed-out request can still write its 503.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
