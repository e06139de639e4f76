// Package plugins provides the metadata-enrichment plugin interface and
// the static registry of plugin classes.
package plugins

import "context"

// Metadata accumulates key/value facts about a matched file as plugins
// run over it. Later plugins see the output of earlier ones.
type Metadata map[string]any

// ConfigField describes one configuration knob a plugin exposes to the
// coordinator's configuration UI, independent of whether this particular
// agent managed to activate the plugin.
type ConfigField struct {
	Name        string
	Description string
	Default     string
}

// Plugin extracts metadata about a matched file. Implementations must be
// safe to call concurrently across files, since the scan-phase handler
// runs plugins inline per match without additional locking.
type Plugin interface {
	// Name is the plugin's stable identifier, used as its store
	// configuration key and in the active-plugin report.
	Name() string

	// ConfigFields declares every configuration field this plugin class
	// accepts, regardless of whether construction in this process
	// succeeded.
	ConfigFields() []ConfigField

	// Run extracts metadata for path, given what earlier plugins already
	// found. It returns only the fields this plugin contributes; the
	// caller merges them into the running accumulator.
	Run(ctx context.Context, path string, acc Metadata) (Metadata, error)
}

// Factory constructs a Plugin instance from its stored configuration.
// Construction may fail (e.g. a required external tool is missing); the
// Manager logs and skips a plugin whose factory errors rather than
// treating it as fatal.
type Factory struct {
	Name   string
	Fields []ConfigField
	Build  func(cfg map[string]string) (Plugin, error)
}
