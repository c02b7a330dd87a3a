package scraper

import "time"

// Poller states reported in Status.
const (
	StateStarting = "starting"
	StateRunning  = "running"
	StateFailed   = "failed"
	StateStopped  = "stopped"
)

// Status is a point-in-time snapshot of a poller, safe to read from other
// goroutines.
type Status struct {
	ID               string    `json:"id"`
	Watch            string    `json:"watch"`
	State            string    `json:"state"`
	Cycles           int64     `json:"cycles"`
	ProxiesTotal     int       `json:"proxies_total"`
	ProxiesRemaining int       `json:"proxies_remaining"`
	EvictedProxies   []string  `json:"evicted_proxies,omitempty"`
	CachedItems      int       `json:"cached_items"`
	Baseline         bool      `json:"baseline"`
	SessionAge       string    `json:"session_age,omitempty"`
	LastSuccess      time.Time `json:"last_success,omitzero"`
	LastFailure      string    `json:"last_failure,omitempty"`
	LastFailureAt    time.Time `json:"last_failure_at,omitzero"`
	Error            string    `json:"error,omitempty"`
}

// Status returns the latest published snapshot.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) recordSuccess() {
	p.publish(func(s *Status) {
		s.LastSuccess = p.now()
	})
}

func (p *Poller) recordFailure(f *Failure) {
	p.publish(func(s *Status) {
		s.LastFailure = f.Kind.String()
		s.LastFailureAt = p.now()
	})
}

func (p *Poller) setState(state string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = state
	if err != nil {
		p.status.Error = err.Error()
	}
}

// publish copies cycle-owned state into the shared snapshot.
func (p *Poller) publish(update func(*Status)) {
	cached := p.cache.Len()
	baseline := p.cache.Primed()
	remaining := 0
	var evicted []string
	if p.pool != nil {
		remaining = p.pool.Remaining()
		for _, addr := range p.pool.Evicted() {
			evicted = append(evicted, addr.String())
		}
	}
	sessionAge := ""
	if s := p.session.Session(); s.Token != "" {
		sessionAge = p.now().Sub(s.AcquiredAt).Round(time.Second).String()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = StateRunning
	p.status.Cycles++
	p.status.CachedItems = cached
	p.status.Baseline = baseline
	p.status.EvictedProxies = evicted
	p.status.ProxiesRemaining = remaining
	p.status.SessionAge = sessionAge
	update(&p.status)
}
