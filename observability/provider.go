// Package observability wires Prometheus metrics and a health/metrics HTTP
// server for one agent process. The heartbeat file and event-driven logging
// live in package agent, which subscribes its own EventBus handlers; this
// package only owns the process-wide metrics registry and its HTTP
// exposure.
package observability

import (
	"log/slog"
	"sync"

	"github.com/mquery/agent/config"
)

// Provider owns the metrics collector and health server for one process.
// When cfg.Enabled is false neither is created: Shutdown is then a no-op,
// and Metrics returns nil, so callers must nil-check the collector before
// recording on it.
type Provider struct {
	cfg       *config.ObservabilityConfig
	logger    *slog.Logger
	collector *Collector
	health    *HealthServer

	mu       sync.Mutex
	shutdown bool
}

// NewProvider builds a Provider from cfg. When cfg.Enabled is false, the
// returned Provider has no collector or health server and Metrics()
// returns nil.
func NewProvider(cfg *config.ObservabilityConfig, logger *slog.Logger) *Provider {
	p := &Provider{cfg: cfg, logger: logger}

	if !cfg.Enabled {
		logger.Debug("observability disabled")
		return p
	}

	p.collector = NewCollector(cfg.FallbackPath)

	if cfg.MetricsAddr != "" {
		p.health = NewHealthServer(cfg.MetricsAddr, p.collector, logger)
		go p.health.Start()
		logger.Info("observability server started", "addr", cfg.MetricsAddr)
	}

	return p
}

// Metrics returns the process's metrics collector, or nil if observability
// is disabled.
func (p *Provider) Metrics() *Collector {
	return p.collector
}

// Shutdown stops the health server and flushes a final metrics snapshot to
// the fallback path, if configured. Safe to call more than once.
func (p *Provider) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		return
	}
	p.shutdown = true

	if p.health != nil {
		p.health.Stop()
	}
	if p.collector != nil {
		if err := p.collector.Flush(); err != nil {
			p.logger.Warn("failed to flush metrics fallback", "error", err)
		}
	}
	p.logger.Info("observability shutdown complete")
}
