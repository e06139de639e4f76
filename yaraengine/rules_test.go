package yaraengine

import "testing"

func TestParseYaraExtractsAtoms(t *testing.T) {
	source := `
rule first {
    strings:
        $a = "evil.exe"
        $b = { AA BB ?? CC }
    condition:
        $a or $b
}

rule second {
    strings:
        $x = "clean"
    condition:
        $x
}
`
	rules := ParseYara(source)
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Name != "first" || rules[1].Name != "second" {
		t.Fatalf("unexpected rule names: %+v", rules)
	}
	if len(rules[0].Atoms) != 2 {
		t.Fatalf("expected 2 atoms for 'first', got %v", rules[0].Atoms)
	}
	if rules[1].Atoms[0] != `"clean"` {
		t.Fatalf("unexpected atom for 'second': %v", rules[1].Atoms)
	}
}

func TestParseYaraNoRules(t *testing.T) {
	if rules := ParseYara("// just a comment"); rules != nil {
		t.Fatalf("expected nil for source with no rules, got %v", rules)
	}
}

func TestCombineOrsRulesAndsAtoms(t *testing.T) {
	rules := []Rule{
		{Name: "r1", Atoms: []string{`"a"`, `"b"`}},
		{Name: "r2", Atoms: []string{`"c"`}},
	}
	got := Combine(rules)
	want := `("a" & "b") | ("c")`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCombineFallsBackToWildcard(t *testing.T) {
	rules := []Rule{{Name: "r1"}, {Name: "r2"}}
	if got := Combine(rules); got != "*" {
		t.Fatalf("expected wildcard fallback, got %q", got)
	}
}

func TestCombineEmptyInput(t *testing.T) {
	if got := Combine(nil); got != "*" {
		t.Fatalf("expected wildcard for no rules, got %q", got)
	}
}
