package httpserver

import (
	"net/http"
	"time"

	"vouch/internal/platform/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	// Uploads of up to 10 MiB must fit on slow links.
	bodyTimeout = time.Minute
	idleTimeout = 2 * time.Minute
)

func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       bodyTimeout,
		WriteTimeout:      bodyTimeout,
		IdleTimeout:       idleTimeout,
	}
}
