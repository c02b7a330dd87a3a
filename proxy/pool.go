package proxy

import (
	"errors"
	"math/rand/v2"
)

// ErrPoolExhausted is returned by Select once every candidate has been evicted.
var ErrPoolExhausted = errors.New("proxy pool exhausted")

// Pool selects proxies uniformly at random and permanently evicts failed ones.
// It is owned by a single poller and is not safe for concurrent use.
type Pool struct {
	candidates []Address
	evicted    map[Address]struct{}
	rng        *rand.Rand
}

// Option configures a Pool.
type Option func(*Pool)

// WithRand sets the random source used by Select.
func WithRand(rng *rand.Rand) Option {
	return func(p *Pool) {
		p.rng = rng
	}
}

// NewPool builds a pool over a copy of candidates.
func NewPool(candidates []Address, opts ...Option) *Pool {
	p := &Pool{
		candidates: append([]Address(nil), candidates...),
		evicted:    make(map[Address]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return p
}

// Select returns a random non-evicted candidate.
func (p *Pool) Select() (Address, error) {
	live := p.live()
	if len(live) == 0 {
		return Address{}, ErrPoolExhausted
	}
	return live[p.rng.IntN(len(live))], nil
}

// Evict marks addr unusable for the rest of the process. Evicting an address
// twice, or one that is not a candidate, is a no-op.
func (p *Pool) Evict(addr Address) {
	p.evicted[addr] = struct{}{}
}

// Remaining reports how many candidates can still be selected.
func (p *Pool) Remaining() int {
	return len(p.live())
}

// Size reports the number of candidates the pool started with.
func (p *Pool) Size() int {
	return len(p.candidates)
}

// Evicted returns the evicted candidates in their original order.
func (p *Pool) Evicted() []Address {
	var out []Address
	for _, c := range p.candidates {
		if _, gone := p.evicted[c]; gone {
			out = append(out, c)
		}
	}
	return out
}

func (p *Pool) live() []Address {
	out := make([]Address, 0, len(p.candidates))
	for _, c := range p.candidates {
		if _, gone := p.evicted[c]; !gone {
			out = append(out, c)
		}
	}
	return out
}
