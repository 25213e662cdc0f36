// Package geocode resolves free-text locations to coordinates for upload
// surveys. It is used by the web layer; the survey core only sees the
// resolved coordinates.
package geocode

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the text matched no place.
	ErrNotFound = errors.New("location not found")
	// ErrUnavailable means the resolver could not answer, e.g. a timeout.
	ErrUnavailable = errors.New("geocoding service unavailable")
)

// Place is a resolved location.
type Place struct {
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
	Name string  `yaml:"name"`
}

// Resolver turns free text into a place.
type Resolver interface {
	Resolve(ctx context.Context, text string) (Place, error)
}

// Chain tries resolvers in order. A not-found answer is final; an
// unavailable resolver falls through to the next one.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, text string) (Place, error) {
	lastErr := error(ErrUnavailable)
	for _, r := range c {
		place, err := r.Resolve(ctx, text)
		if err == nil {
			return place, nil
		}
		if errors.Is(err, ErrNotFound) {
			return Place{}, err
		}
		lastErr = err
	}
	return Place{}, lastErr
}
