package worklist

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Provider memoizes one worklist per session. Lists are never shared between
// sessions, so one respondent's sample cannot leak into another's.
type Provider struct {
	source Source
	group  singleflight.Group

	mu    sync.Mutex
	lists map[string][]WorkItem
}

// NewProvider returns a provider over source.
func NewProvider(source Source) *Provider {
	return &Provider{source: source, lists: map[string][]WorkItem{}}
}

// Worklist returns the session's list, loading it on first use. Concurrent
// first calls for one session share a single load. Failures are not cached.
func (p *Provider) Worklist(ctx context.Context, sessionID string) ([]WorkItem, error) {
	if items, ok := p.cached(sessionID); ok {
		return items, nil
	}
	v, err, _ := p.group.Do(sessionID, func() (any, error) {
		if items, ok := p.cached(sessionID); ok {
			return items, nil
		}
		items, err := p.source.Load(ctx)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.lists[sessionID] = items
		p.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]WorkItem)), nil
}

// Forget drops the session's list.
func (p *Provider) Forget(sessionID string) {
	p.mu.Lock()
	delete(p.lists, sessionID)
	p.mu.Unlock()
}

func (p *Provider) cached(sessionID string) ([]WorkItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	items, ok := p.lists[sessionID]
	if !ok {
		return nil, false
	}
	return slices.Clone(items), true
}
