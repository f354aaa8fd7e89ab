// Package httpserver constructs the process's HTTP listener with the
// timeouts this service runs under.
package httpserver

import (
	"net/http"
	"time"
)

// Defaults applied when a timeout is left unset. Write is generous because
// list queries and media registration share the listener with cheap reads.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 2 * time.Minute
)

// Timeouts bounds slow or stalled clients. Zero fields fall back to the
// package defaults.
type Timeouts struct {
	ReadHeader time.Duration
	Write      time.Duration
	Idle       time.Duration
}

// New builds the HTTP server serving handler on addr.
func New(addr string, handler http.Handler, timeouts Timeouts) *http.Server {
	if timeouts.ReadHeader <= 0 {
		timeouts.ReadHeader = DefaultReadHeaderTimeout
	}
	if timeouts.Write <= 0 {
		timeouts.Write = DefaultWriteTimeout
	}
	if timeouts.Idle <= 0 {
		timeouts.Idle = DefaultIdleTimeout
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
		WriteTimeout:      timeouts.Write,
		IdleTimeout:       timeouts.Idle,
	}
}
