package syncer

import "sync"

// SwitchProbe is a ConnectivityProbe flipped by the embedding application
// (from a browser online event, an OS route change, a health check). It
// notifies subscribers only on actual transitions.
type SwitchProbe struct {
	mu     sync.Mutex
	online bool
	subs   []func(online bool)
}

// NewSwitchProbe starts in the given state.
func NewSwitchProbe(online bool) *SwitchProbe {
	return &SwitchProbe{online: online}
}

func (p *SwitchProbe) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *SwitchProbe) Subscribe(fn func(online bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// Set flips the state and, on a transition, invokes every subscriber outside
// the lock.
func (p *SwitchProbe) Set(online bool) {
	p.mu.Lock()
	if p.online == online {
		p.mu.Unlock()
		return
	}
	p.online = online
	subs := make([]func(bool), len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}
