package scheduler

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// ResourceLedger is the cluster resource state the scheduler reads and
// provisionally mutates.
type ResourceLedger interface {
	// GetClusterResources returns a consistent view of every node.
	GetClusterResources() resources.ClusterResourceView
	// AcquireResources subtracts req from the node's availability, with no
	// partial effect on failure.
	AcquireResources(node resources.NodeID, req *resources.ResourceRequest) bool
	// ReleaseResources adds req back to the node's availability.
	ReleaseResources(node resources.NodeID, req *resources.ResourceRequest) bool
}

type acquisition struct {
	node resources.NodeID
	req  *resources.ResourceRequest
}

// reservation tracks the provisional acquisitions of one decision so they
// can be rolled back together. Callers defer releaseAll right after
// creating it.
type reservation struct {
	ledger   ResourceLedger
	held     []acquisition
	strategy SchedulingType
	metrics  *Metrics
}

func newReservation(ledger ResourceLedger, strategy SchedulingType, metrics *Metrics) *reservation {
	return &reservation{ledger: ledger, strategy: strategy, metrics: metrics}
}

// tryAcquire acquires req on node if it fits. A copy of req is held so the
// release matches the acquisition even if the caller's request changes.
func (r *reservation) tryAcquire(node resources.NodeID, req *resources.ResourceRequest) bool {
	if !r.ledger.AcquireResources(node, req) {
		return false
	}
	r.held = append(r.held, acquisition{node: node, req: req.Clone()})
	r.metrics.observeAcquisition(r.strategy)
	klog.V(4).InfoS("Provisionally acquired resources", "node", node, "request", req)
	return true
}

// mustAcquire acquires req on a node that was just scored as fitting it.
// Failure means the ledger disagrees with its own view.
func (r *reservation) mustAcquire(node resources.NodeID, req *resources.ResourceRequest) {
	if !r.tryAcquire(node, req) {
		err := fmt.Errorf("acquire of %v on node %v failed after the node was scored as fitting", req, node)
		klog.ErrorS(err, "Ledger inconsistent with its cluster view")
		panic(err)
	}
}

// releaseAll returns every held acquisition to the ledger, newest first.
func (r *reservation) releaseAll() {
	for i := len(r.held) - 1; i >= 0; i-- {
		a := r.held[i]
		if !r.ledger.ReleaseResources(a.node, a.req) {
			err := fmt.Errorf("release of %v on node %v failed", a.req, a.node)
			klog.ErrorS(err, "Could not roll back provisional acquisition")
			panic(err)
		}
	}
	if len(r.held) > 0 {
		klog.V(4).InfoS("Released provisional acquisitions", "count", len(r.held))
	}
	r.held = nil
}
