package topology

import (
	"sync/atomic"

	"github.com/nimbusio/nimbus-director/directory"
)

// Cluster is the cached, ordered host list for one cluster id, plus the
// rotation state used to pick a host. Nodes is never mutated once built,
// so SelectHost never races a writer. The resolver keeps a cached *Cluster
// for the life of the process; it does not rebuild it when the directory
// changes.
type Cluster struct {
	ID    int64
	Nodes []directory.NodeRow

	nextIdx atomic.Uint32
}

// NewCluster builds a Cluster from a directory query result.
func NewCluster(info directory.ClusterInfo) *Cluster {
	return &Cluster{ID: info.ClusterID, Nodes: info.Nodes}
}

// SelectHost returns the next host in rotation that available reports
// alive, mirroring the source's route() loop: hosts.rotate(1); if
// available, use it; otherwise keep rotating until every host has been
// tried once. If none are available it still returns a host rather than
// an error, matching the source's "try the request against any host" --
// fallthrough, letting the caller retry at a higher level instead.
//
// available is a predicate (unlike the source's pre-computed set) so
// callers can probe liveness at selection time.
func (c *Cluster) SelectHost(available func(host string) bool) (host string, ok bool) {
	n := uint32(len(c.Nodes))
	if n == 0 {
		return "", false
	}
	if n == 1 {
		return c.Nodes[0].Host, available(c.Nodes[0].Host)
	}

	start := c.nextIdx.Add(1) % n
	first := c.Nodes[start].Host
	for i := uint32(0); i < n; i++ {
		idx := (start + i) % n
		h := c.Nodes[idx].Host
		if available(h) {
			return h, true
		}
	}
	return first, false
}
