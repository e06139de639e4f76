package plugins

import (
	"context"
	"fmt"
	"os"
)

// SizePlugin reports a matched file's size and modification time. It has
// no configuration, so Build always succeeds.
type SizePlugin struct{}

func NewSizePlugin(cfg map[string]string) (Plugin, error) {
	return &SizePlugin{}, nil
}

func (p *SizePlugin) Name() string { return "size" }

func (p *SizePlugin) ConfigFields() []ConfigField { return nil }

func (p *SizePlugin) Run(ctx context.Context, path string, acc Metadata) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("size plugin: stat %s: %w", path, err)
	}
	return Metadata{
		"size_bytes": info.Size(),
		"mtime_unix": info.ModTime().Unix(),
	}, nil
}
