package plugins

import (
	"context"
	"log/slog"
)

// ConfigSource fetches a named plugin's stored configuration, keyed by
// field name. A missing key means "use the field's default".
type ConfigSource interface {
	GetPluginConfiguration(ctx context.Context, name string) (map[string]string, error)
}

// Manager owns the set of active metadata plugins for one agent
// instance. It is rebuilt wholesale on every (re)initialization rather
// than mutated in place, so a reload can never leave the agent with a
// half-updated plugin list.
type Manager struct {
	logger *slog.Logger
	active []Plugin
}

// NewManager builds a Manager by constructing every registered plugin
// against its stored configuration. A plugin whose Build fails is logged
// and dropped; this is never fatal to agent startup.
func NewManager(ctx context.Context, source ConfigSource, logger *slog.Logger) *Manager {
	active := make([]Plugin, 0, len(Registry))
	for _, f := range Registry {
		cfg, err := source.GetPluginConfiguration(ctx, f.Name)
		if err != nil {
			logger.Error("failed to fetch plugin configuration", "plugin", f.Name, "error", err)
			continue
		}
		p, err := f.Build(cfg)
		if err != nil {
			logger.Error("failed to load plugin", "plugin", f.Name, "error", err)
			continue
		}
		logger.Info("loaded plugin", "plugin", f.Name)
		active = append(active, p)
	}
	return &Manager{logger: logger, active: active}
}

// ActiveNames returns the names of every plugin this Manager successfully
// activated, in registration order.
func (m *Manager) ActiveNames() []string {
	names := make([]string, len(m.active))
	for i, p := range m.active {
		names[i] = p.Name()
	}
	return names
}

// Spec reports every registered plugin's declared configuration fields,
// independent of which ones actually activated. The coordinator uses
// this to render configuration UI even for plugins this agent dropped.
func Spec() map[string][]ConfigField {
	spec := make(map[string][]ConfigField, len(Registry))
	for _, f := range Registry {
		spec[f.Name] = f.Fields
	}
	return spec
}

// Run executes every active plugin over path in registration order,
// accumulating metadata. A plugin that errors is logged and skipped; one
// plugin's failure never blocks the others or the match write itself.
func (m *Manager) Run(ctx context.Context, path string) Metadata {
	acc := Metadata{}
	for _, p := range m.active {
		extracted, err := p.Run(ctx, path, acc)
		if err != nil {
			m.logger.Error("plugin failed", "plugin", p.Name(), "path", path, "error", err)
			continue
		}
		for k, v := range extracted {
			acc[k] = v
		}
	}
	return acc
}
