package plugins

import (
	"context"
	"debug/pe"
	"fmt"
)

// PEPlugin extracts Windows PE header metadata: machine type, link
// timestamp, and imported DLL names. Non-PE files are not an error; Run
// simply reports no fields for them.
type PEPlugin struct{}

func NewPEPlugin(cfg map[string]string) (Plugin, error) {
	return &PEPlugin{}, nil
}

func (p *PEPlugin) Name() string { return "pe" }

func (p *PEPlugin) ConfigFields() []ConfigField { return nil }

func (p *PEPlugin) Run(ctx context.Context, path string, acc Metadata) (Metadata, error) {
	f, err := pe.Open(path)
	if err != nil {
		return Metadata{}, nil
	}
	defer f.Close()

	out := Metadata{
		"pe_machine": machineName(f.Machine),
	}
	if oh, ok := f.OptionalHeader.(*pe.OptionalHeader64); ok {
		out["pe_image_base"] = oh.ImageBase
	} else if oh, ok := f.OptionalHeader.(*pe.OptionalHeader32); ok {
		out["pe_image_base"] = oh.ImageBase
	}

	imports, err := f.ImportedLibraries()
	if err == nil {
		out["pe_imports"] = imports
	}

	return out, nil
}

func machineName(m uint16) string {
	switch m {
	case pe.IMAGE_FILE_MACHINE_I386:
		return "i386"
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "amd64"
	case pe.IMAGE_FILE_MACHINE_ARM:
		return "arm"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "arm64"
	default:
		return fmt.Sprintf("unknown(0x%x)", m)
	}
}
