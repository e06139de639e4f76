package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mquery/agent/plugins"
	"github.com/mquery/agent/store"
)

// Registrar owns plugin (re)initialization and the agent's registration
// record in the store: loading active plugins fresh on every call and
// publishing the full plugin spec alongside the active subset.
type Registrar struct {
	groupID    string
	backendURL string
	store      store.Store
	logger     *slog.Logger

	manager *plugins.Manager
}

func NewRegistrar(groupID, backendURL string, s store.Store, logger *slog.Logger) *Registrar {
	return &Registrar{groupID: groupID, backendURL: backendURL, store: s, logger: logger}
}

// Initialize (re)builds the plugin manager from current store
// configuration and registers the agent. It returns the plugin config
// version observed at load time, which the dispatcher should hold until
// the next reload.
func (r *Registrar) Initialize(ctx context.Context) (*plugins.Manager, int64, error) {
	version, err := r.store.GetPluginConfigVersion(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("registrar: reading plugin version: %w", err)
	}

	mgr := plugins.NewManager(ctx, r.store, r.logger)
	r.manager = mgr

	spec := make(map[string][]string, len(plugins.Registry))
	for name, fields := range plugins.Spec() {
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.Name
		}
		spec[name] = names
	}

	if err := r.store.RegisterActiveAgent(ctx, r.groupID, r.backendURL, spec, mgr.ActiveNames()); err != nil {
		return nil, 0, fmt.Errorf("registrar: registering agent: %w", err)
	}

	return mgr, version, nil
}
