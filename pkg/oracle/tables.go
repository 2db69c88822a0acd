package oracle

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed oracle.yaml
var defaultTables []byte

type Pattern struct {
	Tokens   []string `yaml:"tokens"`
	Response string   `yaml:"response"`
}

type Rule struct {
	Name     string   `yaml:"name"`
	All      []string `yaml:"all"`
	Any      []string `yaml:"any"`
	Response string   `yaml:"response"`
}

func (r Rule) matches(present map[string]struct{}) bool {
	for _, t := range r.All {
		if _, ok := present[t]; !ok {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, t := range r.Any {
		if _, ok := present[t]; ok {
			return true
		}
	}
	return false
}

// Tables holds the local reconstruction knowledge: exact patterns first,
// keyword rules second.
type Tables struct {
	Patterns []Pattern `yaml:"patterns"`
	Rules    []Rule    `yaml:"rules"`
}

func DefaultTables() Tables {
	t, err := ParseTables(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("oracle: embedded tables are invalid: %v", err))
	}
	return t
}

func LoadTables(path string) (Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read oracle tables: %w", err)
	}
	return ParseTables(data)
}

func ParseTables(data []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("parse oracle tables: %w", err)
	}
	for i := range t.Patterns {
		if len(t.Patterns[i].Tokens) == 0 || t.Patterns[i].Response == "" {
			return Tables{}, fmt.Errorf("parse oracle tables: pattern %d is incomplete", i)
		}
		t.Patterns[i].Tokens = CleanTokens(t.Patterns[i].Tokens)
	}
	for i := range t.Rules {
		if len(t.Rules[i].All) == 0 && len(t.Rules[i].Any) == 0 {
			return Tables{}, fmt.Errorf("parse oracle tables: rule %q has no tokens", t.Rules[i].Name)
		}
		t.Rules[i].All = CleanTokens(t.Rules[i].All)
		t.Rules[i].Any = CleanTokens(t.Rules[i].Any)
	}
	return t, nil
}

// Local runs the three offline tiers. It only fails on an empty sequence.
func (t Tables) Local(tokens []string) (Result, error) {
	tokens = CleanTokens(tokens)
	if len(tokens) == 0 {
		return Result{}, ErrLowConfidence
	}

	for _, p := range t.Patterns {
		if equalTokens(p.Tokens, tokens) {
			return Result{Sentence: p.Response, Quality: QualityExact, Offline: true}, nil
		}
	}

	present := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		present[tok] = struct{}{}
	}
	for _, r := range t.Rules {
		if r.matches(present) {
			return Result{Sentence: r.Response, Quality: QualityHeuristic, Offline: true}, nil
		}
	}

	return Result{Sentence: strings.Join(tokens, " "), Quality: QualityLiteral, Offline: true}, nil
}

// CleanTokens trims and upper-cases tokens, dropping the empty ones.
func CleanTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
