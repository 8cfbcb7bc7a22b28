package scheduler

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// spreadSchedule prefers a fresh node for every bundle and falls back to a
// node already chosen in this decision when no fresh node fits.
func (s *Scheduler) spreadSchedule(bundles []*resources.ResourceRequest, candidates sets.Set[resources.NodeID]) SchedulingResult {
	r := newReservation(s.ledger, Spread, s.metrics)
	defer r.releaseAll()

	pool := candidates.Clone()
	chosen := sets.New[resources.NodeID]()
	nodes := make([]resources.NodeID, 0, len(bundles))
	for _, b := range bundles {
		if best, ok := s.getBestNode(s.ledger.GetClusterResources(), b, pool); ok {
			r.mustAcquire(best, b)
			pool.Delete(best)
			chosen.Insert(best)
			nodes = append(nodes, best)
			continue
		}
		if best, ok := s.getBestNode(s.ledger.GetClusterResources(), b, chosen); ok {
			r.mustAcquire(best, b)
			nodes = append(nodes, best)
			continue
		}
		break
	}

	if len(nodes) != len(bundles) {
		return SchedulingResult{Status: Failed}
	}
	return SchedulingResult{Status: Success, Nodes: nodes}
}
