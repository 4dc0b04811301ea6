// Package config loads nimbus-director's process configuration from the
// environment, the way the original nimbus.io director read os.environ
// directly rather than from a config file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/mohae/deepcopy"
)

const (
	// DefaultCollectionCacheCapacity matches the source's COLLECTION_CACHE_SIZE.
	DefaultCollectionCacheCapacity = 500000

	// DefaultLivenessResolverCapacity bounds the hostname->address cache
	// liveness.Resolver keeps, where the source's _resolve_cache dict grew
	// without limit.
	DefaultLivenessResolverCapacity = 100000

	defaultListenAddr            = ":8080"
	defaultRedisHost             = "localhost"
	defaultRedisPort             = 6379
	defaultRedisDB               = 0
	defaultDirectoryMaxOpenConns = 10
	defaultDirectoryMaxIdleConns = 2
)

// Config holds every setting nimbus-director needs to run. It is
// constructed once at startup by FromEnv and threaded explicitly through
// the rest of the program; there is no package-level singleton.
type Config struct {
	// ListenAddr is the bind address for the router's own HTTP endpoint.
	ListenAddr string

	// ServiceDomain is the DNS suffix shared by every collection-scoped
	// hostname. Required.
	ServiceDomain string

	// WebServerPort and WebWriterPort are the read-tier and write-tier
	// backend ports. Required.
	WebServerPort int
	WebWriterPort int

	// ManagementDests is the ordered list of hosts that serve requests
	// addressed to the bare service domain. Required, non-empty.
	ManagementDests []string

	// RedisHost, RedisPort, RedisDB locate the shared liveness store.
	RedisHost string
	RedisPort int
	RedisDB   int

	// DirectoryDSN is a postgres:// connection string passed verbatim to
	// lib/pq.
	DirectoryDSN          string
	DirectoryMaxOpenConns int
	DirectoryMaxIdleConns int

	// CollectionCacheCapacity bounds the collection -> cluster LRU.
	CollectionCacheCapacity int

	// LivenessResolverCapacity bounds the liveness package's hostname
	// resolution cache.
	LivenessResolverCapacity int

	// TrustProxyHeader enables recovering the client's real address from
	// a proxy header when nimbus-director sits behind a load balancer.
	TrustProxyHeader bool
	// ProxyHeader names the header to trust; empty selects the default
	// X-Forwarded-For/X-Real-Ip/Forwarded detection.
	ProxyHeader string

	// LogDebug toggles debug-level logging.
	LogDebug bool

	// MetricsNamespace prefixes every Prometheus metric this process
	// registers.
	MetricsNamespace string
}

// FromEnv reads and validates a Config from the process environment,
// applying the defaults spec.md §6 documents.
func FromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:               getEnvOr("LISTEN_ADDR", defaultListenAddr),
		ServiceDomain:            os.Getenv("SERVICE_DOMAIN"),
		ManagementDests:          strings.Fields(os.Getenv("MANAGEMENT_API_REQUEST_DEST")),
		RedisHost:                getEnvOr("REDIS_HOST", defaultRedisHost),
		RedisDB:                  defaultRedisDB,
		RedisPort:                defaultRedisPort,
		DirectoryDSN:             os.Getenv("DIRECTORY_DSN"),
		DirectoryMaxOpenConns:    defaultDirectoryMaxOpenConns,
		DirectoryMaxIdleConns:    defaultDirectoryMaxIdleConns,
		CollectionCacheCapacity:  DefaultCollectionCacheCapacity,
		LivenessResolverCapacity: DefaultLivenessResolverCapacity,
		TrustProxyHeader:         os.Getenv("TRUST_PROXY_HEADER") == "1" || os.Getenv("TRUST_PROXY_HEADER") == "true",
		ProxyHeader:              os.Getenv("PROXY_HEADER"),
		LogDebug:                 os.Getenv("LOG_DEBUG") == "1" || os.Getenv("LOG_DEBUG") == "true",
		MetricsNamespace:         getEnvOr("METRICS_NAMESPACE", "nimbus_director"),
	}

	var err error
	if cfg.WebServerPort, err = intEnv("WEB_SERVER_PORT", 0); err != nil {
		return nil, err
	}
	if cfg.WebWriterPort, err = intEnv("WEB_WRITER_PORT", 0); err != nil {
		return nil, err
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if cfg.RedisPort, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT %q: %w", v, err)
		}
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if cfg.RedisDB, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
	}
	if v := os.Getenv("COLLECTION_CACHE_CAPACITY"); v != "" {
		if cfg.CollectionCacheCapacity, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid COLLECTION_CACHE_CAPACITY %q: %w", v, err)
		}
	}
	if v := os.Getenv("LIVENESS_RESOLVER_CAPACITY"); v != "" {
		if cfg.LivenessResolverCapacity, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid LIVENESS_RESOLVER_CAPACITY %q: %w", v, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every field required by spec.md §6 is present.
func (c *Config) Validate() error {
	if c.ServiceDomain == "" {
		return fmt.Errorf("SERVICE_DOMAIN is required")
	}
	if c.WebServerPort <= 0 {
		return fmt.Errorf("WEB_SERVER_PORT is required and must be positive")
	}
	if c.WebWriterPort <= 0 {
		return fmt.Errorf("WEB_WRITER_PORT is required and must be positive")
	}
	if len(c.ManagementDests) == 0 {
		return fmt.Errorf("MANAGEMENT_API_REQUEST_DEST is required and must list at least one host")
	}
	if c.DirectoryDSN == "" {
		return fmt.Errorf("DIRECTORY_DSN is required")
	}
	if c.CollectionCacheCapacity <= 0 {
		return fmt.Errorf("COLLECTION_CACHE_CAPACITY must be positive")
	}
	return nil
}

// Redacted returns a deep copy of c with DIRECTORY_DSN's credentials
// blanked out, safe to log at startup.
func (c *Config) Redacted() *Config {
	// nolint: forcetypeassert // deepcopy.Copy returns the same concrete type it was given.
	cp := deepcopy.Copy(c).(*Config)
	cp.DirectoryDSN = redactDSN(cp.DirectoryDSN)
	return cp
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "XXX")
	}
	return u.String()
}

func (c *Config) String() string {
	r := c.Redacted()
	return fmt.Sprintf(
		"ListenAddr=%s ServiceDomain=%s WebServerPort=%d WebWriterPort=%d "+
			"ManagementDests=%v RedisHost=%s RedisPort=%d RedisDB=%d "+
			"DirectoryDSN=%s CollectionCacheCapacity=%d LogDebug=%v",
		r.ListenAddr, r.ServiceDomain, r.WebServerPort, r.WebWriterPort,
		r.ManagementDests, r.RedisHost, r.RedisPort, r.RedisDB,
		r.DirectoryDSN, r.CollectionCacheCapacity, r.LogDebug,
	)
}

func getEnvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
