package directory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/nimbusio/nimbus-director/log"
)

// retryDelay is the fixed back-off between reconnect attempts, per
// spec.md §4.1: "unlimited retries ... with a fixed one-second delay".
const retryDelay = time.Second

// ClientConfig configures a Client's connection pool, mirroring
// database.DefaultConfig in Livepeer-FrameWorks-monorepo/pkg/database.
type ClientConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Client is the typed Postgres accessor over the central directory.
// Connections are created lazily, replaced on operational error, and
// closed on Close. Its retry loop keeps retrying the SAME query until it
// succeeds, the error is non-operational, or ctx is done, so a caller with
// a context that never ends can block indefinitely.
type Client struct {
	cfg        ClientConfig
	driverName string

	mu sync.Mutex
	db *sql.DB
}

// NewClient builds a Client. No connection is opened until the first
// query, per spec.md §3's lazy-connection lifecycle.
func NewClient(cfg ClientConfig) *Client {
	return newClient(cfg, "postgres")
}

// newClient is the test seam: it lets client_test.go point Client at a
// fake database/sql driver instead of dialing real Postgres.
func newClient(cfg ClientConfig, driverName string) *Client {
	return &Client{cfg: cfg, driverName: driverName}
}

// Close closes the underlying pooled connection, if any was opened.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Ping verifies the directory is reachable, for use as a readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	db, err := c.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// conn returns the current pooled connection, dialing one if none exists
// yet.
func (c *Client) conn() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}
	db, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

func (c *Client) dial() (*sql.DB, error) {
	db, err := sql.Open(c.driverName, c.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("directory: cannot open connection: %w", err)
	}
	if c.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.cfg.MaxOpenConns)
	}
	if c.cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.cfg.MaxIdleConns)
	}
	return db, nil
}

// reconnect replaces the pooled connection with a fresh one, unless
// another caller already did so: bad captures the *sql.DB the caller was
// using when it observed the operational error. If the live connection
// still is bad, this goroutine is the one that reconnects; otherwise
// somebody else already replaced it and we just reuse their work. This
// mirrors the source's conn-identity comparison in
// _supervise_db_interaction, adapted to a real mutex instead of gevent's
// cooperative scheduling (see DESIGN.md).
func (c *Client) reconnect(bad *sql.DB) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != bad {
		// Someone else already replaced the connection.
		return c.db, nil
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	db, err := c.dial()
	if err != nil {
		c.db = nil
		return nil, err
	}
	c.db = db
	return db, nil
}

// withConn runs query against the current connection, retrying forever
// (with a fixed one-second back-off) on operational errors and
// reconnecting exactly once per failure.
func (c *Client) withConn(ctx context.Context, query func(*sql.DB) error) error {
	for {
		db, err := c.conn()
		if err != nil {
			return err
		}

		err = query(db)
		if err == nil {
			return nil
		}
		if !isOperational(err) {
			return err
		}

		log.Errorf("directory: operational error, reconnecting: %s", err)
		if _, rerr := c.reconnect(db); rerr != nil {
			log.Errorf("directory: reconnect failed: %s", rerr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

// ClusterIDForCollection implements Source.
func (c *Client) ClusterIDForCollection(ctx context.Context, name string) (int64, bool, error) {
	var (
		id    int64
		found bool
	)
	err := c.withConn(ctx, func(db *sql.DB) error {
		// Deletion-time filtering is left to admin-listing callers
		// (spec.md §6); the router itself looks up by name alone.
		row := db.QueryRowContext(ctx,
			`select cluster_id from nimbusio_central.collection
			 where name = $1`, name)
		switch scanErr := row.Scan(&id); scanErr {
		case nil:
			found = true
			return nil
		case sql.ErrNoRows:
			found = false
			return nil
		default:
			return scanErr
		}
	})
	if err != nil {
		return 0, false, err
	}
	return id, found, nil
}

// ClusterInfo implements Source.
func (c *Client) ClusterInfo(ctx context.Context, clusterID int64) (ClusterInfo, error) {
	var info ClusterInfo
	err := c.withConn(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`select name, hostname, node_number_in_cluster
			 from nimbusio_central.node
			 where cluster_id = $1
			 order by node_number_in_cluster`, clusterID)
		if err != nil {
			return err
		}
		defer rows.Close()

		nodes := make([]NodeRow, 0, 8)
		for rows.Next() {
			var n NodeRow
			if err := rows.Scan(&n.Name, &n.Host, &n.NodeNumber); err != nil {
				return err
			}
			nodes = append(nodes, n)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		info = ClusterInfo{ClusterID: clusterID, Nodes: nodes}
		return nil
	})
	return info, err
}
