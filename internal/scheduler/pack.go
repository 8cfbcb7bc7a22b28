package scheduler

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

type queuedBundle struct {
	pos int
	req *resources.ResourceRequest
}

// packSchedule fills one node at a time: the best node for the first
// unplaced bundle takes it, then every later bundle that still fits there,
// before the next node is opened.
func (s *Scheduler) packSchedule(bundles []*resources.ResourceRequest, candidates sets.Set[resources.NodeID]) SchedulingResult {
	r := newReservation(s.ledger, Pack, s.metrics)
	defer r.releaseAll()

	queue := make([]queuedBundle, len(bundles))
	for i, b := range bundles {
		queue[i] = queuedBundle{pos: i, req: b}
	}
	nodes := make([]resources.NodeID, len(bundles))
	pool := candidates.Clone()

	for len(queue) > 0 {
		head := queue[0]
		best, ok := s.getBestNode(s.ledger.GetClusterResources(), head.req, pool)
		if !ok {
			break
		}
		r.mustAcquire(best, head.req)
		nodes[head.pos] = best

		rest := queue[:0]
		for _, qb := range queue[1:] {
			if r.tryAcquire(best, qb.req) {
				nodes[qb.pos] = best
				continue
			}
			rest = append(rest, qb)
		}
		queue = rest
		pool.Delete(best)
	}

	if len(queue) > 0 {
		return SchedulingResult{Status: Failed}
	}
	return SchedulingResult{Status: Success, Nodes: nodes}
}
