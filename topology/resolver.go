package topology

import (
	"context"

	"github.com/nimbusio/nimbus-director/directory"
	"github.com/nimbusio/nimbus-director/metrics"
)

// Resolver answers "what hosts serve this collection", combining a
// directory.Source with the stampede-safe memoizer and the two caches, the
// same layering the source's _hosts_for_collection/_cluster_for_collection/
// _cluster_info chain implements with known_collections/known_clusters.
type Resolver struct {
	source     directory.Source
	memoizer   *directory.Memoizer
	collection *CollectionCache
	cluster    *ClusterCache
}

// NewResolver builds a Resolver over source, memoizing concurrent queries
// through memoizer and caching results in collection/cluster caches.
func NewResolver(source directory.Source, memoizer *directory.Memoizer, collection *CollectionCache, cluster *ClusterCache) *Resolver {
	return &Resolver{source: source, memoizer: memoizer, collection: collection, cluster: cluster}
}

// HostsForCollection returns the ordered host list for name's owning
// cluster, or ok=false if no such collection exists.
func (r *Resolver) HostsForCollection(ctx context.Context, name string) (*Cluster, bool, error) {
	clusterID, found, err := r.clusterIDForCollection(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	cl, err := r.clusterByID(ctx, clusterID)
	if err != nil {
		return nil, false, err
	}
	return cl, true, nil
}

func (r *Resolver) clusterIDForCollection(ctx context.Context, name string) (int64, bool, error) {
	if id, found, ok := r.collection.Lookup(name); ok {
		metrics.CacheHits.WithLabelValues("collection").Inc()
		return id, found, nil
	}
	metrics.CacheMisses.WithLabelValues("collection").Inc()

	type result struct {
		id    int64
		found bool
	}
	res, err := directory.Do(ctx, r.memoizer,
		func() (result, bool) {
			id, found, ok := r.collection.Lookup(name)
			return result{id, found}, ok
		},
		func(ctx context.Context) (result, error) {
			id, found, err := r.source.ClusterIDForCollection(ctx, name)
			if err != nil {
				return result{}, err
			}
			metrics.DirectoryQueries.WithLabelValues("cluster_for_collection").Inc()
			if found {
				r.collection.StorePresent(name, id)
			} else {
				r.collection.StoreAbsent(name)
			}
			return result{id, found}, nil
		},
	)
	if err != nil {
		metrics.DirectoryErrors.WithLabelValues("cluster_for_collection", "query").Inc()
		return 0, false, err
	}
	return res.id, res.found, nil
}

func (r *Resolver) clusterByID(ctx context.Context, clusterID int64) (*Cluster, error) {
	if cl, ok := r.cluster.Lookup(clusterID); ok {
		metrics.CacheHits.WithLabelValues("cluster").Inc()
		return cl, nil
	}
	metrics.CacheMisses.WithLabelValues("cluster").Inc()

	cl, err := directory.Do(ctx, r.memoizer,
		func() (*Cluster, bool) {
			return r.cluster.Lookup(clusterID)
		},
		func(ctx context.Context) (*Cluster, error) {
			info, err := r.source.ClusterInfo(ctx, clusterID)
			if err != nil {
				return nil, err
			}
			metrics.DirectoryQueries.WithLabelValues("cluster_info").Inc()
			cl := NewCluster(info)
			r.cluster.Store(cl)
			return cl, nil
		},
	)
	if err != nil {
		metrics.DirectoryErrors.WithLabelValues("cluster_info", "query").Inc()
		return nil, err
	}
	return cl, nil
}
