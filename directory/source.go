// Package directory is the typed accessor over the relational directory:
// collection name -> owning cluster, and cluster id -> ordered host list.
// It hides reconnection and transient errors from callers (spec.md §4.1),
// and provides the stampede-safe Memoizer callers wrap around it
// (spec.md §4.2).
package directory

import "context"

// NodeRow is one row of the node table: a cluster member in
// node_number_in_cluster order.
type NodeRow struct {
	Name       string
	Host       string
	NodeNumber int
}

// ClusterInfo is the result of a ClusterInfo query: every node row for a
// cluster, in ascending node_number_in_cluster order.
type ClusterInfo struct {
	ClusterID int64
	Nodes     []NodeRow
}

// Source is the directory's read surface. directory.Client implements it
// against Postgres; fixtures.Source implements it against a static YAML
// file for local development and tests.
type Source interface {
	// ClusterIDForCollection returns the owning cluster id for name, or
	// ok=false if no such collection exists.
	ClusterIDForCollection(ctx context.Context, name string) (id int64, ok bool, err error)

	// ClusterInfo returns the ordered node rows for a cluster id.
	ClusterInfo(ctx context.Context, clusterID int64) (ClusterInfo, error)
}
