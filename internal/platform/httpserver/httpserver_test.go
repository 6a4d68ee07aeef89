package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	handler := http.NewServeMux()
	srv := New(":8080", handler)

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, http.Handler(handler), srv.Handler)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 2*time.Minute, srv.ReadTimeout, "reads must outlast large multipart uploads")
	assert.Equal(t, 2*time.Minute, srv.WriteTimeout)
	assert.Equal(t, 90*time.Second, srv.IdleTimeout)
}
