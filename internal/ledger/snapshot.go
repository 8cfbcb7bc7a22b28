package ledger

import (
	"fmt"

	"k8s.io/klog/v2"

	v1 "github.com/NVIDIA/bundle-scheduler/api/config/v1"
	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// LoadSnapshot replaces the contents of m with the nodes of a snapshot.
// Nodes known to m but absent from the snapshot are removed.
func LoadSnapshot(m *ClusterResourceManager, parser *ResourceParser, snapshot *v1.ClusterSnapshot) error {
	present := make(map[resources.NodeID]bool, len(snapshot.Nodes))
	for _, n := range snapshot.Nodes {
		node, err := parser.ParseNode(n)
		if err != nil {
			return fmt.Errorf("node %v: %w", n.ID, err)
		}
		id := resources.NodeID(n.ID)
		if err := m.AddOrUpdateNode(id, node, n.Labels); err != nil {
			return err
		}
		present[id] = true
		klog.V(4).InfoS("Loaded node", "node", id, "name", n.DisplayName())
	}
	for _, id := range m.NodeIDs() {
		if !present[id] {
			m.RemoveNode(id)
		}
	}
	klog.V(2).InfoS("Loaded cluster snapshot", "nodes", len(snapshot.Nodes))
	return nil
}

// LoadSnapshotFile reads a snapshot file into m.
func LoadSnapshotFile(m *ClusterResourceManager, parser *ResourceParser, path string) error {
	snapshot, err := v1.LoadClusterSnapshot(path)
	if err != nil {
		return err
	}
	return LoadSnapshot(m, parser, snapshot)
}

// LoadBundlesFile reads a bundle file and parses its requests.
func LoadBundlesFile(parser *ResourceParser, path string) ([]*resources.ResourceRequest, error) {
	set, err := v1.LoadBundleSet(path)
	if err != nil {
		return nil, err
	}
	reqs, err := parser.ParseRequests(set)
	if err != nil {
		return nil, err
	}
	if klogV := klog.V(4); klogV.Enabled() {
		for i, req := range reqs {
			klogV.InfoS("Loaded bundle", "index", i, "request", parser.Describe(req))
		}
	}
	return reqs, nil
}
