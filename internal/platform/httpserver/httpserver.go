package httpserver

import (
	"net/http"
	"time"
)

// Timeouts sized for the upload endpoints: multipart document scans can be
// tens of megabytes over slow links, so the read timeout is generous while
// header reads stay tight.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 2 * time.Minute
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 90 * time.Second
)

// New builds the HTTP server hosting the fisco API.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
