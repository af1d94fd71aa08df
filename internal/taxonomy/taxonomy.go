// Package taxonomy loads the category choices offered per kind.
package taxonomy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"kakeibo/internal/core"
)

// Taxonomy lists categories per kind in display order.
type Taxonomy struct {
	Expense []string `yaml:"expense" json:"expense"`
	Income  []string `yaml:"income" json:"income"`
}

// Default is the built-in category list used when no file is configured.
func Default() Taxonomy {
	return Taxonomy{
		Expense: []string{"食費", "交通費", "交際費", "その他"},
		Income:  []string{"給与", "その他"},
	}
}

// Load reads a YAML taxonomy file. An empty path yields Default.
func Load(path string) (Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("read taxonomy: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes YAML and normalizes it. A kind left empty keeps its defaults.
func Parse(data []byte) (Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Taxonomy{}, err
	}
	def := Default()
	t.Expense = dedupe(t.Expense)
	if len(t.Expense) == 0 {
		t.Expense = def.Expense
	}
	t.Income = dedupe(t.Income)
	if len(t.Income) == 0 {
		t.Income = def.Income
	}
	return t, nil
}

// For returns the categories offered for kind.
func (t Taxonomy) For(kind core.Kind) []string {
	if kind == core.Income {
		return append([]string(nil), t.Income...)
	}
	return append([]string(nil), t.Expense...)
}

// Contains reports whether category is listed for kind.
func (t Taxonomy) Contains(kind core.Kind, category string) bool {
	for _, c := range t.For(kind) {
		if c == category {
			return true
		}
	}
	return false
}

// dedupe trims entries and drops blanks and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
