// Package router implements the front-door routing decision: given a
// request's Host header, method, and path, decide which backend (or
// which management destination) should receive it, or reject it outright.
// It is a direct, concurrency-safe port of the source's Router.route,
// generalized to Go's real goroutines and explicit contexts in place of
// gevent's cooperative scheduling (spec.md §4.5).
package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nimbusio/nimbus-director/internal/counter"
	"github.com/nimbusio/nimbus-director/log"
	"github.com/nimbusio/nimbus-director/metrics"
	"github.com/nimbusio/nimbus-director/topology"
)

// CollectionResolver answers "which cluster serves this collection",
// implemented by *topology.Resolver; narrowed to an interface here so
// router_test.go can substitute a fake directory without a real database.
type CollectionResolver interface {
	HostsForCollection(ctx context.Context, name string) (*topology.Cluster, bool, error)
}

// Availability answers "which of these hosts are currently reachable",
// implemented by *liveness.Oracle.
type Availability interface {
	Available(ctx context.Context, hosts []string, destPort int) map[string]bool
}

// Destinations rotates through a fixed set of backends, implemented by
// *topology.RoundRobin.
type Destinations interface {
	Next() string
}

const (
	// availabilityTimeout bounds how long Route will keep retrying a
	// collection with no currently-reachable host before giving up.
	availabilityTimeout = 30 * time.Second
	// retryDelay is the pause between availability re-checks.
	retryDelay = time.Second
)

var writeMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodDelete: true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
}

var readMethods = map[string]bool{
	http.MethodHead: true,
	http.MethodGet:  true,
}

// Config holds the parameters Route needs beyond its per-request
// arguments: the service domain suffix and the two backend ports reads and
// writes land on. Management destinations are passed to New separately.
type Config struct {
	ServiceDomain string
	ReadPort      int
	WritePort     int
}

// Router ties together a collection/cluster Resolver, a liveness Oracle,
// and a management-destination RoundRobin to answer Route.
type Router struct {
	cfg      Config
	resolver CollectionResolver
	oracle   Availability
	mgmt     Destinations
	counter  counter.Counter
	clock    Clock
}

// New builds a Router. clock may be nil, in which case real wall-clock
// time is used; tests supply a fake Clock to avoid a real 30-second wait.
func New(cfg Config, resolver CollectionResolver, oracle Availability, mgmt Destinations, clock Clock) *Router {
	if clock == nil {
		clock = realClock{}
	}
	return &Router{cfg: cfg, resolver: resolver, oracle: oracle, mgmt: mgmt, clock: clock}
}

// Route decides where hostname/method/path should be forwarded.
//
// Unlike the source's route(hostname, method, path, query, start=None),
// which recurses with an accumulating start timestamp, Route loops
// in place: the recursion in Python existed only to let gevent yield
// between attempts, which an explicit loop with time.After achieves more
// directly in Go.
//
// A non-nil error is a directory-fatal error (spec.md §7): operational
// errors are already retried forever beneath the resolver, so anything
// that reaches here is a syntax/permission/programming error that must
// propagate to the caller's generic 500 handler, not collapse into a
// reject Decision indistinguishable from a legitimate 503.
func (rt *Router) Route(ctx context.Context, hostname, method, path, rawQuery string) (Decision, error) {
	reqNum := rt.counter.Inc()
	log.Debugf("request %d: host=%q method=%q path=%q query=%q", reqNum, hostname, method, path, rawQuery)

	if hostname == "" || !strings.HasSuffix(hostname, rt.cfg.ServiceDomain) {
		metrics.Decisions.WithLabelValues("reject_unknown_host").Inc()
		return reject(http.StatusNotFound, ""), nil
	}

	if hostname == rt.cfg.ServiceDomain {
		target := rt.mgmt.Next()
		metrics.ManagementRotations.Inc()
		metrics.Decisions.WithLabelValues("management").Inc()
		log.Debugf("request %d to management backend %s", reqNum, target)
		return Decision{Remote: target}, nil
	}

	destPort, ok := rt.destPort(method)
	if !ok {
		metrics.Decisions.WithLabelValues("reject_method").Inc()
		return reject(http.StatusBadRequest, "Unknown method"), nil
	}

	collection := strings.TrimSuffix(hostname, "."+rt.cfg.ServiceDomain)

	cluster, found, err := rt.resolver.HostsForCollection(ctx, collection)
	if err != nil {
		log.Errorf("request %d: directory error resolving %q: %s", reqNum, collection, err)
		metrics.Decisions.WithLabelValues("directory_error").Inc()
		return Decision{}, fmt.Errorf("router: resolving %q: %w", collection, err)
	}
	if !found {
		metrics.Decisions.WithLabelValues("reject_unknown_collection").Inc()
		return reject(http.StatusNotFound, "No such collection"), nil
	}

	hosts := make([]string, len(cluster.Nodes))
	for i, n := range cluster.Nodes {
		hosts[i] = n.Host
	}

	deadline := rt.clock.Now().Add(availabilityTimeout)
	for {
		available := rt.oracle.Available(ctx, hosts, destPort)
		host, ok := cluster.SelectHost(func(h string) bool { return available[h] })
		if ok {
			metrics.Decisions.WithLabelValues("remote").Inc()
			log.Debugf("request %d to backend host %s port %d", reqNum, host, destPort)
			return Decision{Remote: fmt.Sprintf("%s:%d", host, destPort)}, nil
		}

		if rt.clock.Now().After(deadline) {
			log.Errorf("request %d: no available host for %q after %s", reqNum, collection, availabilityTimeout)
			metrics.Decisions.WithLabelValues("reject_unavailable").Inc()
			return reject(http.StatusServiceUnavailable, "Retry later"), nil
		}

		select {
		case <-ctx.Done():
			metrics.Decisions.WithLabelValues("reject_unavailable").Inc()
			return reject(http.StatusServiceUnavailable, "Retry later"), nil
		case <-rt.clock.After(retryDelay):
		}
	}
}

func (rt *Router) destPort(method string) (int, bool) {
	switch {
	case writeMethods[method]:
		return rt.cfg.WritePort, true
	case readMethods[method]:
		return rt.cfg.ReadPort, true
	default:
		return 0, false
	}
}
