package topology

import "sync/atomic"

// RoundRobin rotates through a fixed list of destinations, used for
// management-domain requests that aren't tied to any collection (the
// source's management_api_request_dest_hosts deque). Unlike Cluster's
// ring, rotation here is unconditional: there's no liveness check for
// management destinations.
type RoundRobin struct {
	dests   []string
	nextIdx atomic.Uint32
}

// NewRoundRobin builds a RoundRobin over dests. dests must be non-empty.
func NewRoundRobin(dests []string) *RoundRobin {
	cp := make([]string, len(dests))
	copy(cp, dests)
	return &RoundRobin{dests: cp}
}

// Next returns the current head of the queue, then advances the rotation
// so the following call returns the next destination in declaration
// order, cycling back to the first after the last (spec.md §4.5 step 4,
// §8 scenario 3: for [m1, m2], successive calls return m1, m2, m1, ...).
func (r *RoundRobin) Next() string {
	n := uint32(len(r.dests))
	idx := (r.nextIdx.Add(1) - 1) % n
	return r.dests[idx]
}
