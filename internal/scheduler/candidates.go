package scheduler

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// NodeFilter decides whether a node may host bundles of this decision.
type NodeFilter func(resources.NodeID) bool

func filterCandidateNodes(view resources.ClusterResourceView, filter NodeFilter) sets.Set[resources.NodeID] {
	candidates := sets.New[resources.NodeID]()
	for id := range view {
		if filter == nil || filter(id) {
			candidates.Insert(id)
		}
	}
	return candidates
}

// getBestNode returns the candidate with the highest score for req, visiting
// candidates in ascending id order so the first of equal scores wins. It
// reports false when no candidate has a non-negative score.
func (s *Scheduler) getBestNode(view resources.ClusterResourceView, req *resources.ResourceRequest, candidates sets.Set[resources.NodeID]) (resources.NodeID, bool) {
	var (
		best      resources.NodeID
		bestScore float64
		found     bool
	)
	for _, id := range sets.List(candidates) {
		node, ok := view[id]
		if !ok {
			err := fmt.Errorf("candidate node %v is not in the cluster view", id)
			klog.ErrorS(err, "Inconsistent candidate set")
			panic(err)
		}
		score := s.scorer.Score(req, node)
		klog.V(4).InfoS("Scored node", "node", id, "score", score)
		if !found || bestScore < score {
			best, bestScore, found = id, score, true
		}
	}
	if !found || bestScore < 0 {
		return "", false
	}
	return best, true
}
