package scheduler

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// NodeScorer scores how well a node suits a request. A negative score means
// the node cannot host the request with its current availability.
type NodeScorer interface {
	Score(req *resources.ResourceRequest, node *resources.NodeResources) float64
}

// LeastResourceScorer prefers the node that keeps the largest fraction of
// its available resources after placement. The score is the sum over every
// requested dimension of (available - requested) / available, where a
// dimension with nothing available contributes 0. Requests with a negative
// dimension score -1.
type LeastResourceScorer struct{}

var _ NodeScorer = LeastResourceScorer{}

func (LeastResourceScorer) Score(req *resources.ResourceRequest, node *resources.NodeResources) float64 {
	if len(req.Predefined) > len(node.Predefined) {
		return -1
	}

	var score float64
	for i, requested := range req.Predefined {
		s := leastResourceDimension(requested, node.Predefined[i].Available)
		if s < 0 {
			return -1
		}
		score += s
	}
	for _, id := range req.SortedCustomIDs() {
		c, ok := node.Custom[id]
		if !ok {
			return -1
		}
		s := leastResourceDimension(req.Custom[id], c.Available)
		if s < 0 {
			return -1
		}
		score += s
	}
	return score
}

func leastResourceDimension(requested, available resources.Quantity) float64 {
	if available.IsNegative() {
		err := fmt.Errorf("available quantity %s is negative", available)
		klog.ErrorS(err, "Corrupt node resources")
		panic(err)
	}
	if requested.IsNegative() || requested.Cmp(available) > 0 {
		return -1
	}
	if available.IsZero() {
		return 0
	}
	return available.Sub(requested).Float64() / available.Float64()
}
