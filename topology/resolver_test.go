package topology

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nimbusio/nimbus-director/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a directory.Source test double driven entirely from
// in-memory maps, for exercising Resolver without a database.
type fakeSource struct {
	collections map[string]int64
	clusters    map[int64]directory.ClusterInfo

	collectionQueries atomic.Int64
	clusterQueries    atomic.Int64
}

func (f *fakeSource) ClusterIDForCollection(ctx context.Context, name string) (int64, bool, error) {
	f.collectionQueries.Add(1)
	id, ok := f.collections[name]
	return id, ok, nil
}

func (f *fakeSource) ClusterInfo(ctx context.Context, clusterID int64) (directory.ClusterInfo, error) {
	f.clusterQueries.Add(1)
	return f.clusters[clusterID], nil
}

func newResolver(src directory.Source) *Resolver {
	return NewResolver(src, directory.NewMemoizer(), NewCollectionCache(100), NewClusterCache())
}

func TestResolver_HostsForCollection_Found(t *testing.T) {
	wantNodes := []directory.NodeRow{
		{Name: "a", Host: "host-a"},
		{Name: "b", Host: "host-b", NodeNumber: 1},
	}
	src := &fakeSource{
		collections: map[string]int64{"logs": 1},
		clusters: map[int64]directory.ClusterInfo{
			1: {ClusterID: 1, Nodes: wantNodes},
		},
	}
	r := newResolver(src)

	cl, ok, err := r.HostsForCollection(context.Background(), "logs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), cl.ID)
	if diff := cmp.Diff(wantNodes, cl.Nodes); diff != "" {
		t.Errorf("Nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_HostsForCollection_NotFound(t *testing.T) {
	src := &fakeSource{collections: map[string]int64{}, clusters: map[int64]directory.ClusterInfo{}}
	r := newResolver(src)

	_, ok, err := r.HostsForCollection(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_CachesAcrossCalls(t *testing.T) {
	src := &fakeSource{
		collections: map[string]int64{"logs": 1},
		clusters: map[int64]directory.ClusterInfo{
			1: {ClusterID: 1, Nodes: []directory.NodeRow{{Name: "a", Host: "host-a"}}},
		},
	}
	r := newResolver(src)

	for i := 0; i < 5; i++ {
		_, ok, err := r.HostsForCollection(context.Background(), "logs")
		require.NoError(t, err)
		require.True(t, ok)
	}

	assert.Equal(t, int64(1), src.collectionQueries.Load(), "collection id should be queried once and cached")
	assert.Equal(t, int64(1), src.clusterQueries.Load(), "cluster info should be queried once and cached")
}

func TestResolver_CachesNegativeLookup(t *testing.T) {
	src := &fakeSource{collections: map[string]int64{}, clusters: map[int64]directory.ClusterInfo{}}
	r := newResolver(src)

	for i := 0; i < 3; i++ {
		_, ok, err := r.HostsForCollection(context.Background(), "nonexistent")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, int64(1), src.collectionQueries.Load(), "absent result should be cached after the first query")
}
