// Command nimbus-director is the nimbus.io front-door request router: it
// decides, for every incoming request, which backend in which cluster
// should serve it, and proxies the request there.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nimbusio/nimbus-director/clients"
	"github.com/nimbusio/nimbus-director/config"
	"github.com/nimbusio/nimbus-director/directory"
	"github.com/nimbusio/nimbus-director/fixtures"
	"github.com/nimbusio/nimbus-director/liveness"
	"github.com/nimbusio/nimbus-director/log"
	"github.com/nimbusio/nimbus-director/metrics"
	"github.com/nimbusio/nimbus-director/middleware"
	"github.com/nimbusio/nimbus-director/router"
	"github.com/nimbusio/nimbus-director/topology"
)

var fixturesFile = flag.String("fixtures", "", "Path to a YAML fixtures file to use instead of DIRECTORY_DSN (for local development)")

func main() {
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %s", err)
	}
	log.SetDebug(cfg.LogDebug)
	log.Infof("starting with config: %s", cfg)

	source, closeSource, err := newSource(cfg)
	if err != nil {
		log.Fatalf("cannot initialize directory source: %s", err)
	}
	defer closeSource()

	redisClient, err := clients.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("cannot reach redis: %s", err)
	}
	defer func() { _ = redisClient.Close() }()

	metrics.Register(cfg.MetricsNamespace)

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatalf("cannot determine local hostname: %s", err)
	}
	hashName := fmt.Sprintf("nimbus.io.web_monitor.%s", hostname)

	resolver := topology.NewResolver(source, directory.NewMemoizer(), topology.NewCollectionCache(cfg.CollectionCacheCapacity), topology.NewClusterCache())
	oracle := liveness.NewOracle(redisClient, hashName, liveness.NewResolver(cfg.LivenessResolverCapacity))
	mgmt := topology.NewRoundRobin(cfg.ManagementDests)

	rt := router.New(router.Config{
		ServiceDomain: cfg.ServiceDomain,
		ReadPort:      cfg.WebServerPort,
		WritePort:     cfg.WebWriterPort,
	}, resolver, oracle, mgmt, nil)

	var handler http.Handler = &proxyHandler{router: rt}
	handler = middleware.NewProxyMiddleware(middleware.ProxyConfig{
		Enable: cfg.TrustProxyHeader,
		Header: cfg.ProxyHeader,
	}, handler)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthzHandler(source))
	mux.Handle("/", handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	log.Infof("serving http on %q", cfg.ListenAddr)
	log.Fatalf("server error: %s", server.ListenAndServe())
}

// newSource builds the directory.Source this process reads from: a
// fixtures.Source if -fixtures was given, otherwise a live directory.Client
// over DIRECTORY_DSN. The returned func closes whichever was built.
func newSource(cfg *config.Config) (directory.Source, func(), error) {
	if *fixturesFile != "" {
		src, err := fixtures.Load(*fixturesFile)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}

	client := directory.NewClient(directory.ClientConfig{
		DSN:          cfg.DirectoryDSN,
		MaxOpenConns: cfg.DirectoryMaxOpenConns,
		MaxIdleConns: cfg.DirectoryMaxIdleConns,
	})
	return client, func() { _ = client.Close() }, nil
}

// healthzHandler reports readiness by pinging the directory, the one
// dependency whose unavailability this process cannot route around.
func healthzHandler(source directory.Source) http.HandlerFunc {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := source.(pinger)
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.Errorf("healthz: directory unreachable: %s", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// proxyHandler adapts router.Router's Decision into an actual HTTP
// response: either a raw rejection or a reverse-proxied request.
type proxyHandler struct {
	router *router.Router
}

func (h *proxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		host = r.Host
	}

	decision, err := h.router.Route(r.Context(), host, r.Method, r.URL.Path, r.URL.RawQuery)
	if err != nil {
		log.Errorf("routing %s: %s", r.Host, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if decision.Reject != nil {
		w.WriteHeader(decision.Reject.StatusCode)
		_, _ = w.Write([]byte(decision.Reject.Body))
		return
	}

	target := &url.URL{Scheme: "http", Host: decision.Remote}
	httputil.NewSingleHostReverseProxy(target).ServeHTTP(w, r)
}
