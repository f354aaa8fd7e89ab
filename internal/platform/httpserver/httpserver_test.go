package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAppliesDefaults(t *testing.T) {
	srv := New(":8080", http.NewServeMux(), Timeouts{})

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, DefaultReadHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Equal(t, DefaultWriteTimeout, srv.WriteTimeout)
	assert.Equal(t, DefaultIdleTimeout, srv.IdleTimeout)
}

func TestNewHonorsConfiguredTimeouts(t *testing.T) {
	srv := New(":8080", http.NewServeMux(), Timeouts{
		ReadHeader: 2 * time.Second,
		Write:      45 * time.Second,
		Idle:       time.Minute,
	})

	assert.Equal(t, 2*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 45*time.Second, srv.WriteTimeout)
	assert.Equal(t, time.Minute, srv.IdleTimeout)
}
