package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer returns an HTTP server exposing the prometheus metrics handler.
func NewServer(listen, path string) *http.Server {
	router := http.NewServeMux()
	router.Handle(path, promhttp.Handler())

	return &http.Server{
		Addr:         listen,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
