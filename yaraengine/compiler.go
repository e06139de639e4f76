// Package yaraengine wraps YARA rule compilation and matching
// (github.com/hillu/go-yara/v4), the compiled-rule cache, and the
// rule-to-backend-query lowering step.
package yaraengine

import (
	"context"
	"fmt"

	yara "github.com/hillu/go-yara/v4"
)

// CompileError wraps a YARA compiler failure (invalid rule syntax).
type CompileError struct {
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("yaraengine: compiling rule: %v", e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// ScanError wraps a per-file failure during matching: a corrupt sample, a
// missing file, or an engine-internal error. Callers on the per-file
// swallow path log and skip rather than propagate.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("yaraengine: scanning %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Ruleset is a compiled YARA ruleset ready to match files.
type Ruleset struct {
	rules *yara.Rules
}

// Compile parses and compiles YARA source text into a Ruleset.
func Compile(source string) (*Ruleset, error) {
	compiler, err := yara.NewCompiler()
	if err != nil {
		return nil, fmt.Errorf("yaraengine: creating compiler: %w", err)
	}
	if err := compiler.AddString(source, ""); err != nil {
		return nil, &CompileError{Source: source, Err: err}
	}
	rules, err := compiler.GetRules()
	if err != nil {
		return nil, &CompileError{Source: source, Err: err}
	}
	return &Ruleset{rules: rules}, nil
}

// Match scans path against the ruleset and returns the names of every
// rule that matched. An empty, nil-error result means a clean scan with
// no matches.
func (r *Ruleset) Match(ctx context.Context, path string) ([]string, error) {
	var matches yara.MatchRules
	if err := r.rules.ScanFile(path, 0, 0, &matches); err != nil {
		return nil, &ScanError{Path: path, Err: err}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Rule)
	}
	return names, nil
}
