package plugins

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// HashPlugin computes cryptographic digests of matched files.
type HashPlugin struct {
	algorithms []string
}

// NewHashPlugin builds a HashPlugin from the "algorithms" config field, a
// comma-separated list drawn from md5, sha1, sha256. An unknown algorithm
// name is rejected at construction time so a typo in stored config fails
// loudly during plugin load rather than silently during every scan.
func NewHashPlugin(cfg map[string]string) (Plugin, error) {
	raw := cfg["algorithms"]
	if raw == "" {
		raw = "sha256"
	}
	algos := strings.Split(raw, ",")
	for i, a := range algos {
		algos[i] = strings.TrimSpace(a)
		switch algos[i] {
		case "md5", "sha1", "sha256":
		default:
			return nil, fmt.Errorf("hash plugin: unsupported algorithm %q", algos[i])
		}
	}
	return &HashPlugin{algorithms: algos}, nil
}

func (p *HashPlugin) Name() string { return "hash" }

func (p *HashPlugin) ConfigFields() []ConfigField {
	return []ConfigField{
		{Name: "algorithms", Description: "comma-separated digest list: md5,sha1,sha256", Default: "sha256"},
	}
}

func (p *HashPlugin) Run(ctx context.Context, path string, acc Metadata) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hash plugin: opening %s: %w", path, err)
	}
	defer f.Close()

	hashers := make(map[string]hash.Hash, len(p.algorithms))
	writers := make([]io.Writer, 0, len(p.algorithms))
	for _, a := range p.algorithms {
		var h hash.Hash
		switch a {
		case "md5":
			h = md5.New()
		case "sha1":
			h = sha1.New()
		case "sha256":
			h = sha256.New()
		}
		hashers[a] = h
		writers = append(writers, h)
	}

	if _, err := io.Copy(io.MultiWriter(writers...), f); err != nil {
		return nil, fmt.Errorf("hash plugin: reading %s: %w", path, err)
	}

	out := Metadata{}
	for a, h := range hashers {
		out[a] = hex.EncodeToString(h.Sum(nil))
	}
	return out, nil
}
