package scheduler

import (
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// strictSpreadSchedule places every bundle on a distinct node. Node
// exclusivity alone prevents double use, so nothing is acquired.
func (s *Scheduler) strictSpreadSchedule(bundles []*resources.ResourceRequest, candidates sets.Set[resources.NodeID]) SchedulingResult {
	if len(bundles) > candidates.Len() {
		klog.V(2).InfoS("More bundles than candidate nodes", "bundles", len(bundles), "candidates", candidates.Len())
		return SchedulingResult{Status: Infeasible}
	}

	view := s.ledger.GetClusterResources()
	pool := candidates.Clone()
	nodes := make([]resources.NodeID, 0, len(bundles))
	for _, b := range bundles {
		best, ok := s.getBestNode(view, b, pool)
		if !ok {
			break
		}
		nodes = append(nodes, best)
		pool.Delete(best)
	}

	if len(nodes) != len(bundles) {
		return SchedulingResult{Status: Failed}
	}
	return SchedulingResult{Status: Success, Nodes: nodes}
}
