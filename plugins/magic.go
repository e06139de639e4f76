package plugins

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// MagicPlugin sniffs a matched file's type by shelling out to the
// system file(1) utility through safeOutput (exec_helpers.go).
type MagicPlugin struct {
	binary string
}

// NewMagicPlugin resolves the configured binary (default "file") on
// PATH at construction time, so a missing tool is surfaced as a
// load-time skip rather than a per-file failure.
func NewMagicPlugin(cfg map[string]string) (Plugin, error) {
	binary := cfg["binary"]
	if binary == "" {
		binary = "file"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("magic plugin: %s not found on PATH: %w", binary, err)
	}
	return &MagicPlugin{binary: binary}, nil
}

func (p *MagicPlugin) Name() string { return "magic" }

func (p *MagicPlugin) ConfigFields() []ConfigField {
	return []ConfigField{
		{Name: "binary", Description: "path to the file(1) binary", Default: "file"},
	}
}

func (p *MagicPlugin) Run(ctx context.Context, path string, acc Metadata) (Metadata, error) {
	cmd := exec.CommandContext(ctx, p.binary, "--brief", path)
	out, err := safeOutput(cmd)
	if err != nil {
		return nil, fmt.Errorf("magic plugin: running %s on %s: %w", p.binary, path, err)
	}
	return Metadata{"file_type": strings.TrimSpace(string(out))}, nil
}
