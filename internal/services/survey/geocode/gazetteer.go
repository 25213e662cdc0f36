package geocode

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed gazetteer_india.yaml
var indiaGazetteer string

// Entry is one named place of a gazetteer.
type Entry struct {
	Key   string `yaml:"key"`
	Place `yaml:",inline"`
}

// Gazetteer is an offline lookup over a fixed list of places.
type Gazetteer struct {
	entries []Entry
}

// NewGazetteer builds a gazetteer; keys are matched case-insensitively.
func NewGazetteer(entries []Entry) *Gazetteer {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.Key = strings.ToLower(strings.TrimSpace(e.Key))
		if e.Key == "" {
			continue
		}
		out = append(out, e)
	}
	return &Gazetteer{entries: out}
}

// LoadGazetteer reads a YAML list of entries.
func LoadGazetteer(r io.Reader) (*Gazetteer, error) {
	var entries []Entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode gazetteer: %w", err)
	}
	return NewGazetteer(entries), nil
}

// IndiaGazetteer returns the built-in list of Indian landmarks and cities.
func IndiaGazetteer() *Gazetteer {
	g, err := LoadGazetteer(strings.NewReader(indiaGazetteer))
	if err != nil {
		panic(err)
	}
	return g
}

// Resolve tries an exact key match, then a substring match in either
// direction, then any query word contained in a key.
func (g *Gazetteer) Resolve(_ context.Context, text string) (Place, error) {
	term := strings.ToLower(strings.TrimSpace(text))
	if term == "" {
		return Place{}, ErrNotFound
	}
	for _, e := range g.entries {
		if e.Key == term {
			return e.Place, nil
		}
	}
	for _, e := range g.entries {
		if strings.Contains(e.Key, term) || strings.Contains(term, e.Key) {
			return e.Place, nil
		}
	}
	words := strings.Fields(term)
	for _, e := range g.entries {
		for _, w := range words {
			if strings.Contains(e.Key, w) {
				return e.Place, nil
			}
		}
	}
	return Place{}, ErrNotFound
}
