package plugins

import (
	"context"
	"debug/pe"
	"os"
	"path/filepath"
	"testing"
)

func TestPEPluginNonPEFileReturnsEmptyMetadataNoError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("just some text, not a PE file"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := NewPEPlugin(nil)
	if err != nil {
		t.Fatalf("NewPEPlugin: %v", err)
	}

	got, err := p.Run(context.Background(), path, Metadata{})
	if err != nil {
		t.Fatalf("Run should not error on a non-PE file: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no metadata for a non-PE file, got %+v", got)
	}
}

func TestMachineName(t *testing.T) {
	cases := []struct {
		machine uint16
		want    string
	}{
		{pe.IMAGE_FILE_MACHINE_I386, "i386"},
		{pe.IMAGE_FILE_MACHINE_AMD64, "amd64"},
		{pe.IMAGE_FILE_MACHINE_ARM, "arm"},
		{pe.IMAGE_FILE_MACHINE_ARM64, "arm64"},
		{0x9999, "unknown(0x9999)"},
	}
	for _, tc := range cases {
		if got := machineName(tc.machine); got != tc.want {
			t.Errorf("machineName(0x%x) = %q, want %q", tc.machine, got, tc.want)
		}
	}
}

func TestPEPluginNameAndConfigFields(t *testing.T) {
	p, _ := NewPEPlugin(nil)
	if p.Name() != "pe" {
		t.Errorf("Name() = %q, want pe", p.Name())
	}
	if p.ConfigFields() != nil {
		t.Error("expected no config fields for the pe plugin")
	}
}
