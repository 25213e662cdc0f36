package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/session"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/worklist"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 2 * time.Hour

// Registry keeps one state machine per session id. Sessions are
// process-local and vanish on restart.
type Registry struct {
	def      questionnaire.Definition
	provider *worklist.Provider
	ttl      time.Duration
	now      func() time.Time
	opts     []session.Option

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	machine *session.Machine
	seen    time.Time
}

// NewRegistry returns a registry creating machines for def with worklists
// from provider. Machine options apply to every session.
func NewRegistry(def questionnaire.Definition, provider *worklist.Provider, ttl time.Duration, now func() time.Time, opts ...session.Option) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{
		def:      def,
		provider: provider,
		ttl:      ttl,
		now:      now,
		opts:     opts,
		entries:  map[string]*registryEntry{},
	}
}

// Lookup returns the live machine for sessionID and marks it as used.
func (r *Registry) Lookup(sessionID string) (*session.Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	entry.seen = r.now()
	return entry.machine, true
}

// Open returns the machine for sessionID, loading a worklist and starting a
// new session when none exists. Load failures wrap
// worklist.ErrDataUnavailable and register nothing.
func (r *Registry) Open(ctx context.Context, sessionID string) (*session.Machine, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	if machine, ok := r.Lookup(sessionID); ok {
		return machine, nil
	}
	if r.provider == nil {
		return nil, fmt.Errorf("%w: no worklist provider configured", worklist.ErrDataUnavailable)
	}
	items, err := r.provider.Worklist(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		r.provider.Forget(sessionID)
		return nil, fmt.Errorf("%w: empty worklist", worklist.ErrDataUnavailable)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[sessionID]; ok {
		entry.seen = r.now()
		return entry.machine, nil
	}
	machine := session.NewMachine(r.def, items, r.opts...)
	r.entries[sessionID] = &registryEntry{machine: machine, seen: r.now()}
	log.Printf("session opened session_id=%s items=%d", sessionID, len(items))
	return machine, nil
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	var expired []string

	r.mu.Lock()
	for sessionID, entry := range r.entries {
		if entry.seen.Before(cutoff) {
			delete(r.entries, sessionID)
			expired = append(expired, sessionID)
		}
	}
	r.mu.Unlock()

	for _, sessionID := range expired {
		if r.provider != nil {
			r.provider.Forget(sessionID)
		}
	}
	if len(expired) > 0 {
		log.Printf("sessions evicted count=%d", len(expired))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
