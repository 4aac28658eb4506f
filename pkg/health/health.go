package health

import (
	"net/http"
	"time"
)

// NewHealthCheckServer returns an HTTP server exposing a single status
// endpoint, intended to run as a process-manager server worker.
func NewHealthCheckServer(listen, path string, handler http.Handler) *http.Server {
	router := http.NewServeMux()
	router.Handle(path, handler)

	return &http.Server{
		Addr:         listen,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func DefaultHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
