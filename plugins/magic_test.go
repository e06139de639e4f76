package plugins

import "testing"

func TestNewMagicPluginRejectsMissingBinary(t *testing.T) {
	if _, err := NewMagicPlugin(map[string]string{"binary": "/definitely/not/on/path/xyz"}); err == nil {
		t.Fatal("expected an error when the configured binary cannot be found")
	}
}
