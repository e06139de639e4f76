package yaraengine

import (
	"regexp"
	"strings"
)

// Rule is a minimal parsed view of one YARA rule: its name and the
// string/hex atoms declared in its `strings:` section. Condition logic
// is deliberately not modeled — the backend query is a coarse pre-filter,
// not a full re-implementation of YARA's condition evaluator.
type Rule struct {
	Name  string
	Atoms []string
}

var (
	ruleHeaderRe = regexp.MustCompile(`(?m)^\s*rule\s+(\w+)`)
	textStringRe = regexp.MustCompile(`\$\w*\s*=\s*"((?:[^"\\]|\\.)*)"`)
	hexStringRe  = regexp.MustCompile(`\$\w*\s*=\s*\{([0-9A-Fa-f?\s]+)\}`)
)

// ParseYara splits raw YARA source into its constituent rules and
// extracts each rule's literal string/hex atoms for query lowering. It is
// intentionally permissive: unparsable or atom-less rules are kept with
// an empty atom list rather than rejected, since the caller's fallback is
// always "match everything" — correctness of the final YARA pass does
// not depend on this pre-filter being exhaustive.
func ParseYara(source string) []Rule {
	headers := ruleHeaderRe.FindAllStringSubmatchIndex(source, -1)
	if len(headers) == 0 {
		return nil
	}

	rules := make([]Rule, 0, len(headers))
	for i, h := range headers {
		name := source[h[2]:h[3]]
		start := h[1]
		end := len(source)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := source[start:end]
		rules = append(rules, Rule{Name: name, Atoms: extractAtoms(body)})
	}
	return rules
}

func extractAtoms(body string) []string {
	var atoms []string
	for _, m := range textStringRe.FindAllStringSubmatch(body, -1) {
		lit := strings.TrimSpace(m[1])
		if lit != "" {
			atoms = append(atoms, `"`+lit+`"`)
		}
	}
	for _, m := range hexStringRe.FindAllStringSubmatch(body, -1) {
		hex := strings.Join(strings.Fields(m[1]), " ")
		if hex != "" {
			atoms = append(atoms, "{"+hex+"}")
		}
	}
	return atoms
}

// Combine lowers parsed rules into a single backend query string. Each
// rule's atoms are ANDed together (a rule can only match a file
// containing all of its literal strings), and rules are ORed across each
// other: a file only needs to satisfy one rule's atoms to pass the
// pre-filter, since the real YARA pass downstream still refines
// per-rule. A rule with no extractable atoms could match any file, so if
// any rule has none (or there are no rules at all) the query degrades to
// "*" and the search proceeds unfiltered rather than silently skipping
// files that rule could match.
func Combine(rules []Rule) string {
	var clauses []string
	for _, r := range rules {
		if len(r.Atoms) == 0 {
			return "*"
		}
		clauses = append(clauses, "("+strings.Join(r.Atoms, " & ")+")")
	}
	if len(clauses) == 0 {
		return "*"
	}
	return strings.Join(clauses, " | ")
}
