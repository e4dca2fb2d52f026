// Package httptransport builds the HTTP server and its middleware chain.
package httptransport

import (
	"net/http"
	"time"
)

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address           string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// Minimum client throughput and floor used by BodyReadTimeout.
const (
	MinUploadBytesPerSecond int64 = 256 << 10
	MinBodyReadTimeout            = 15 * time.Second
)

// BodyReadTimeout is long enough to receive maxBytes from a client sending
// at MinUploadBytesPerSecond, and never shorter than MinBodyReadTimeout.
func BodyReadTimeout(maxBytes int64) time.Duration {
	if maxBytes <= 0 {
		return MinBodyReadTimeout
	}
	seconds := (maxBytes + MinUploadBytesPerSecond - 1) / MinUploadBytesPerSecond
	timeout := time.Duration(seconds) * time.Second
	if timeout < MinBodyReadTimeout {
		return MinBodyReadTimeout
	}
	return timeout
}

// NewServer creates *http.Server with provided handler. ReadHeaderTimeout
// falls back to ReadTimeout when unset.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	headerTimeout := cfg.ReadHeaderTimeout
	if headerTimeout <= 0 {
		headerTimeout = cfg.ReadTimeout
	}
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: headerTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Middleware decorates a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first one listed runs outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
