package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/mquery/agent/backend"
	"github.com/mquery/agent/config"
	"github.com/mquery/agent/observability"
	"github.com/mquery/agent/store"
	"github.com/mquery/agent/yaraengine"
)

// Agent wires together the store, backend, YARA cache, plugin registrar,
// and dispatcher for one agent process in one group.
type Agent struct {
	groupID    string
	store      store.Store
	backend    backend.Client
	cache      *yaraengine.Cache
	logger     *slog.Logger
	bus        *EventBus
	registrar  *Registrar
	dispatcher *Dispatcher
	batch      config.BatchConfig

	metrics    *MetricsSubscriber
	heartbeat  *HeartbeatSubscriber
	obs        *observability.Provider
}

// New builds an Agent ready to Run. groupID defaults to "default" when
// empty, matching the original daemon's single positional argument.
func New(cfg *config.Config, groupID string, s store.Store, b backend.Client, logger *slog.Logger) (*Agent, error) {
	if groupID == "" {
		groupID = "default"
	}

	cache, err := yaraengine.NewCache(cfg.Cache.Capacity)
	if err != nil {
		return nil, err
	}

	bus := NewEventBus(256)
	a := &Agent{
		groupID: groupID,
		store:   s,
		backend: b,
		cache:   cache,
		logger:  logger,
		bus:     bus,
		batch:   cfg.Batch,
	}

	a.registrar = NewRegistrar(groupID, cfg.Backend.URL, s, logger)
	a.obs = observability.NewProvider(&cfg.Observability, logger)
	a.setupSubscribers(cfg)

	search := NewSearchHandler(groupID, s, b)
	scan := NewScanHandler(groupID, s, b, cache, nil, cfg.Batch, logger)
	scan.SetMetrics(a.obs.Metrics())
	a.dispatcher = NewDispatcher(groupID, s, search, scan, bus, logger, a.reinitialize(scan))

	return a, nil
}

func (a *Agent) setupSubscribers(cfg *config.Config) {
	a.bus.Subscribe("log", NewLogSubscriber(a.logger).Handle)

	a.metrics = NewMetricsSubscriber()
	a.bus.Subscribe("metrics", a.metrics.Handle)
	a.bus.Subscribe("prometheus", NewPrometheusSubscriber(a.obs.Metrics()).Handle)

	if cfg.Observability.HeartbeatEnabled {
		a.heartbeat = NewHeartbeatSubscriber(cfg.Observability.HeartbeatPath)
		a.bus.Subscribe("heartbeat", a.heartbeat.Handle)
	}
}

// reinitialize returns a closure that rebuilds the plugin manager on the
// scan handler whenever the dispatcher observes a reload.
func (a *Agent) reinitialize(scan *ScanHandler) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		mgr, _, err := a.registrar.Initialize(ctx)
		if err != nil {
			return err
		}
		scan.plugins = mgr
		return nil
	}
}

// Run registers the agent, performs its initial plugin load, and blocks
// dispatching tasks until ctx is cancelled (typically by a SIGINT/SIGTERM
// handler installed by the caller).
func (a *Agent) Run(ctx context.Context) error {
	mgr, version, err := a.registrar.Initialize(ctx)
	if err != nil {
		return err
	}
	a.dispatcher.scan.plugins = mgr
	a.dispatcher.SetPluginVersion(version)

	heartbeatTicker := time.NewTicker(30 * time.Second)
	defer heartbeatTicker.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- a.dispatcher.RunLoop(ctx) }()

	for {
		select {
		case <-ctx.Done():
			a.bus.Close()
			a.obs.Shutdown()
			return ctx.Err()
		case <-heartbeatTicker.C:
			a.bus.PublishTyped(EventHeartbeat, HeartbeatPayload{})
		case err := <-errCh:
			a.bus.Close()
			a.obs.Shutdown()
			return err
		}
	}
}

// Metrics exposes the agent's in-process counters for observability
// wiring.
func (a *Agent) Metrics() *MetricsSubscriber {
	return a.metrics
}
