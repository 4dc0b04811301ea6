// Package liveness reports which hosts the web_monitor process (running
// alongside this director, one per availability zone) currently believes
// are reachable. It reads a Redis hash kept fresh by that monitor;
// nimbus-director itself never probes hosts directly.
package liveness

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/nimbusio/nimbus-director/log"
	"github.com/nimbusio/nimbus-director/metrics"
)

// status is the JSON value web_monitor stores per host:port key.
type status struct {
	Reachable bool `json:"reachable"`
}

// Oracle answers "is this host:port reachable", backed by Redis. It fails
// open: a Redis error, or no recorded status for any of the queried hosts,
// makes every queried host available, since an outage in the monitoring
// path must never make the director itself unavailable (spec.md §4.4).
// When some of the hosts do have a recorded status, a host without one is
// not reported available.
type Oracle struct {
	client   redis.UniversalClient
	hashName string
	resolver *Resolver
}

// NewOracle builds an Oracle. hashName is the Redis hash key web_monitor
// publishes to for this director instance (nimbus.io.web_monitor.<host>,
// per the source).
func NewOracle(client redis.UniversalClient, hashName string, resolver *Resolver) *Oracle {
	return &Oracle{client: client, hashName: hashName, resolver: resolver}
}

// Available reports, for each of hosts, whether web_monitor currently
// considers host:destPort reachable. A host missing from the result map,
// or mapped to false, is not available. Available degrades towards
// "available" only when Redis fails or none of the hosts has a recorded
// status, consistent with check_availability's fail-open behavior; a host
// whose name cannot be resolved is also reported available.
func (o *Oracle) Available(ctx context.Context, hosts []string, destPort int) map[string]bool {
	available := make(map[string]bool, len(hosts))
	if len(hosts) == 0 {
		return available
	}

	keys := make([]string, len(hosts))
	for i, h := range hosts {
		addr, err := o.resolver.Resolve(h)
		if err != nil {
			log.Errorf("liveness: cannot resolve host %q: %s", h, err)
			available[h] = true
			keys[i] = ""
			continue
		}
		keys[i] = redisKey(addr, destPort)
	}

	vals, err := o.client.HMGet(ctx, o.hashName, keys...).Result()
	if err != nil {
		metrics.LivenessDegraded.WithLabelValues("redis_error").Inc()
		log.Errorf("liveness: redis error querying %s: %s", o.hashName, err)
		for _, h := range hosts {
			available[h] = true
		}
		return available
	}

	unknown := 0
	for i, h := range hosts {
		v := vals[i]
		if v == nil {
			unknown++
			continue
		}
		s, ok := v.(string)
		if !ok {
			unknown++
			continue
		}
		var st status
		if err := json.Unmarshal([]byte(s), &st); err != nil {
			log.Errorf("liveness: cannot decode status for %s: %s", h, err)
			unknown++
			continue
		}
		available[h] = st.Reachable
	}

	if unknown == len(hosts) {
		metrics.LivenessDegraded.WithLabelValues("all_unknown").Inc()
		for _, h := range hosts {
			available[h] = true
		}
	}

	for h, up := range available {
		v := 0.0
		if up {
			v = 1
		}
		metrics.HostHealth.WithLabelValues("", h).Set(v)
	}

	return available
}

func redisKey(addr string, destPort int) string {
	return addr + ":" + strconv.Itoa(destPort)
}
