// Package fixtures implements directory.Source against a static YAML file
// instead of Postgres, for local development and integration tests that
// shouldn't need a real central database.
package fixtures

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/nimbusio/nimbus-director/directory"
)

// Document is the on-disk shape of a fixtures file: a map from collection
// name to cluster id, and a map from cluster id to that cluster's ordered
// nodes.
type Document struct {
	Collections map[string]int64      `yaml:"collections"`
	Clusters    map[int64]ClusterSpec `yaml:"clusters"`
}

// ClusterSpec lists a cluster's nodes in node_number_in_cluster order.
type ClusterSpec struct {
	Nodes []NodeSpec `yaml:"nodes"`
}

// NodeSpec is one node row.
type NodeSpec struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
}

// Source is a directory.Source backed by an in-memory Document loaded
// from YAML.
type Source struct {
	doc Document
}

// Load reads and parses a fixtures file from path.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixtures: cannot read %q: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fixtures: cannot parse %q: %w", path, err)
	}
	return &Source{doc: doc}, nil
}

// ClusterIDForCollection implements directory.Source.
func (s *Source) ClusterIDForCollection(_ context.Context, name string) (int64, bool, error) {
	id, ok := s.doc.Collections[name]
	return id, ok, nil
}

// ClusterInfo implements directory.Source.
func (s *Source) ClusterInfo(_ context.Context, clusterID int64) (directory.ClusterInfo, error) {
	spec, ok := s.doc.Clusters[clusterID]
	if !ok {
		return directory.ClusterInfo{ClusterID: clusterID}, nil
	}
	nodes := make([]directory.NodeRow, len(spec.Nodes))
	for i, n := range spec.Nodes {
		nodes[i] = directory.NodeRow{Name: n.Name, Host: n.Host, NodeNumber: i}
	}
	return directory.ClusterInfo{ClusterID: clusterID, Nodes: nodes}, nil
}

var _ directory.Source = (*Source)(nil)
