package generate

import (
	"context"
	"log"

	"github.com/pkg/errors"
)

// ErrNoAvailableEndpoints means every configured endpoint failed its
// liveness probe; the run cannot proceed.
var ErrNoAvailableEndpoints = errors.New("no available endpoints")

// Pool hands out live endpoints round-robin: the Nth request gets
// live[N mod len(live)], so long runs distribute evenly regardless of
// individual call latency.
type Pool struct {
	live []string
	next int
}

// NewPool builds a pool from an already-probed list of live endpoints.
// Intended for tests; production runs go through ProbeEndpoints.
func NewPool(live []string) (*Pool, error) {
	if len(live) == 0 {
		return nil, ErrNoAvailableEndpoints
	}
	return &Pool{live: live}, nil
}

// ProbeEndpoints issues the seed prompt once against each configured
// endpoint and keeps the ones that answer. The probe backend should carry a
// short timeout and a minimal retry budget so that startup stays bounded.
// Probing also serves as the warm-up roundtrip: a surviving endpoint has
// produced a real completion.
func ProbeEndpoints(ctx context.Context, probe Backend, endpoints []string, prompt string) (*Pool, error) {
	if prompt == "" {
		prompt = DefaultSeedPrompt
	}

	var live []string
	for _, endpoint := range endpoints {
		if _, err := probe.Call(ctx, prompt, "user", endpoint); err != nil {
			log.Printf("[WARN] server %s is not available: %v", ServerName(endpoint), err)
			continue
		}
		log.Printf("[INFO] server %s is available", ServerName(endpoint))
		live = append(live, endpoint)
	}

	if len(live) == 0 {
		return nil, errors.Wrapf(ErrNoAvailableEndpoints, "probed %d endpoints", len(endpoints))
	}
	return &Pool{live: live}, nil
}

// Next returns the endpoint for the next task. Not safe for concurrent use;
// the dispatcher assigns endpoints from a single goroutine.
func (p *Pool) Next() string {
	endpoint := p.live[p.next%len(p.live)]
	p.next++
	return endpoint
}

// Live returns the live endpoints in probe order.
func (p *Pool) Live() []string {
	return p.live
}

// Size returns the number of live endpoints.
func (p *Pool) Size() int {
	return len(p.live)
}
