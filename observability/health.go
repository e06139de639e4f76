package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthServer exposes /healthz, /readyz, and /metrics on a private
// listener, separate from any traffic the backend HTTP client generates.
type HealthServer struct {
	addr   string
	logger *slog.Logger
	server *http.Server
	ready  bool
}

// NewHealthServer builds a server bound to addr (e.g. ":9282"). Call Start
// from its own goroutine.
func NewHealthServer(addr string, collector *Collector, logger *slog.Logger) *HealthServer {
	h := &HealthServer{addr: addr, logger: logger, ready: true}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if h.ready {
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "ready")
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "not ready")
		}
	})
	if collector != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
	}

	h.server = &http.Server{Addr: addr, Handler: mux}
	return h
}

// Start serves until Stop is called or the listener fails.
func (h *HealthServer) Start() {
	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		h.logger.Warn("health server failed to start", "addr", h.addr, "error", err)
		return
	}
	if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		h.logger.Warn("health server error", "error", err)
	}
}

// Stop gracefully shuts the server down.
func (h *HealthServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.server.Shutdown(ctx)
}

// SetReady toggles the /readyz response.
func (h *HealthServer) SetReady(ready bool) {
	h.ready = ready
}
