// Package health aggregates per-feed activity signals for external health
// reporting. The registry observes feeds; it never owns or mutates them.
package health

import (
	"sync"
	"time"
)

// Probe records activity for one registered feed.
type Probe struct {
	name string
	last atomicTime
	now  func() time.Time
}

// Name returns the feed name.
func (p *Probe) Name() string {
	return p.name
}

// MarkActive records that the feed just received a notification.
func (p *Probe) MarkActive() {
	p.last.Store(p.now())
}

// LastActive returns when the feed last received a notification (or its
// registration time if it never has).
func (p *Probe) LastActive() time.Time {
	return p.last.Load()
}

// FeedStatus is one row of a liveness report.
type FeedStatus struct {
	Name       string    `json:"name"`
	LastActive time.Time `json:"last_active"`
	Active     bool      `json:"active"`
}

// Registry tracks all registered feeds. It is an explicit, constructed
// object owned by the orchestrating caller and passed to every component
// that registers a feed.
type Registry struct {
	mu     sync.RWMutex
	probes []*Probe
	now    func() time.Time // Overridable for tests
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// Register adds a feed. Registration time counts as initial activity so a
// freshly started feed is not reported stale before its first update.
func (r *Registry) Register(name string) *Probe {
	p := &Probe{name: name, now: func() time.Time { return r.now() }}
	p.last.Store(r.now())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes = append(r.probes, p)
	return p
}

// Report returns the status of every registered feed against the threshold.
func (r *Registry) Report(threshold time.Duration) []FeedStatus {
	cutoff := r.now().Add(-threshold)

	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]FeedStatus, 0, len(r.probes))
	for _, p := range r.probes {
		last := p.LastActive()
		statuses = append(statuses, FeedStatus{
			Name:       p.name,
			LastActive: last,
			Active:     !last.Before(cutoff),
		})
	}
	return statuses
}

// Healthy reports whether every registered feed was active within the
// threshold. An empty registry is healthy.
func (r *Registry) Healthy(threshold time.Duration) bool {
	for _, s := range r.Report(threshold) {
		if !s.Active {
			return false
		}
	}
	return true
}

// atomicTime is a mutex-guarded time.Time.
type atomicTime struct {
	mu sync.Mutex
	t  time.Time
}

func (a *atomicTime) Store(t time.Time) {
	a.mu.Lock()
	a.t = t
	a.mu.Unlock()
}

func (a *atomicTime) Load() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t
}
