package scheduler

import (
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// strictPackSchedule places every bundle on the same node. The bundles are
// evaluated as one combined request, so nothing is acquired.
func (s *Scheduler) strictPackSchedule(bundles []*resources.ResourceRequest, candidates sets.Set[resources.NodeID]) SchedulingResult {
	aggregate := aggregateRequests(bundles)
	view := s.ledger.GetClusterResources()

	// Any node of the cluster, candidate or not, that could ever host the
	// aggregate makes the request feasible.
	feasible := false
	for _, node := range view {
		if node.IsFeasible(aggregate) {
			feasible = true
			break
		}
	}
	if !feasible {
		klog.V(2).InfoS("No node can ever host the packed bundles", "aggregate", aggregate)
		return SchedulingResult{Status: Infeasible}
	}

	best, ok := s.getBestNode(view, aggregate, candidates)
	if !ok {
		return SchedulingResult{Status: Failed}
	}
	nodes := make([]resources.NodeID, len(bundles))
	for i := range nodes {
		nodes[i] = best
	}
	return SchedulingResult{Status: Success, Nodes: nodes}
}

// aggregateRequests sums requests dimension by dimension. The predefined
// length of the result is that of the longest request.
func aggregateRequests(requests []*resources.ResourceRequest) *resources.ResourceRequest {
	out := &resources.ResourceRequest{Custom: make(map[resources.CustomResourceID]resources.Quantity)}
	for _, r := range requests {
		for i, q := range r.Predefined {
			p := resources.PredefinedResource(i)
			out.Set(p, out.Get(p).Add(q))
		}
		for id, q := range r.Custom {
			out.Custom[id] = out.Custom[id].Add(q)
		}
	}
	return out
}
