package ledger

import (
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// ClusterResourceManager is the in-memory cluster resource ledger. Every
// operation is atomic with respect to the others; sequences of operations
// are not, so callers running concurrent decisions must serialize them.
type ClusterResourceManager struct {
	mu     sync.RWMutex
	nodes  map[resources.NodeID]*resources.NodeResources
	labels map[resources.NodeID]map[string]string
}

// NewClusterResourceManager constructs an empty ledger.
func NewClusterResourceManager() *ClusterResourceManager {
	return &ClusterResourceManager{
		nodes:  make(map[resources.NodeID]*resources.NodeResources),
		labels: make(map[resources.NodeID]map[string]string),
	}
}

// AddOrUpdateNode stores a copy of node under id, replacing any previous
// state. The node must satisfy 0 <= available <= total.
func (m *ClusterResourceManager) AddOrUpdateNode(id resources.NodeID, node *resources.NodeResources, labels map[string]string) error {
	if err := node.Validate(); err != nil {
		return fmt.Errorf("node %v: %w", id, err)
	}
	l := make(map[string]string, len(labels))
	for k, v := range labels {
		l[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[id] = node.Clone()
	m.labels[id] = l
	return nil
}

// RemoveNode forgets a node. It reports whether the node was known.
func (m *ClusterResourceManager) RemoveNode(id resources.NodeID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[id]; !ok {
		return false
	}
	delete(m.nodes, id)
	delete(m.labels, id)
	return true
}

// GetNodeResources returns a copy of one node's resources.
func (m *ClusterResourceManager) GetNodeResources(id resources.NodeID) (*resources.NodeResources, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// NodeLabels returns a copy of the labels of a node, nil for unknown nodes.
func (m *ClusterResourceManager) NodeLabels(id resources.NodeID) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.labels[id]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// NodeIDs returns the known node ids in ascending order.
func (m *ClusterResourceManager) NodeIDs() []resources.NodeID {
	return m.GetClusterResources().SortedNodeIDs()
}

// CopyFrom replaces the contents of m with a copy of src. Decisions can then
// run against m while src keeps receiving updates.
func (m *ClusterResourceManager) CopyFrom(src *ClusterResourceManager) {
	src.mu.RLock()
	nodes := make(map[resources.NodeID]*resources.NodeResources, len(src.nodes))
	labels := make(map[resources.NodeID]map[string]string, len(src.labels))
	for id, n := range src.nodes {
		nodes[id] = n.Clone()
		l := make(map[string]string, len(src.labels[id]))
		for k, v := range src.labels[id] {
			l[k] = v
		}
		labels[id] = l
	}
	src.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = nodes
	m.labels = labels
}

// GetClusterResources returns a deep copy of the current view. Later
// acquisitions and releases are not reflected in the returned view.
func (m *ClusterResourceManager) GetClusterResources() resources.ClusterResourceView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	view := make(resources.ClusterResourceView, len(m.nodes))
	for id, n := range m.nodes {
		view[id] = n.Clone()
	}
	return view
}

// AcquireResources deducts req from the node's availability. Nothing is
// deducted unless every dimension fits.
func (m *ClusterResourceManager) AcquireResources(id resources.NodeID, req *resources.ResourceRequest) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		klog.V(4).InfoS("Acquire on unknown node", "node", id)
		return false
	}
	if err := DeductRequest(n, req); err != nil {
		klog.V(4).InfoS("Acquire rejected", "node", id, "request", req, "err", err)
		return false
	}
	return true
}

// ReleaseResources adds req back to the node's availability, clamped at the
// node's total. It fails without changes if the node is unknown or lacks a
// dimension req uses.
func (m *ClusterResourceManager) ReleaseResources(id resources.NodeID, req *resources.ResourceRequest) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		klog.V(4).InfoS("Release on unknown node", "node", id)
		return false
	}
	if err := RestoreRequest(n, req); err != nil {
		klog.V(4).InfoS("Release rejected", "node", id, "request", req, "err", err)
		return false
	}
	return true
}
