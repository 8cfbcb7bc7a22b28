package scheduler

import (
	"fmt"
	"sort"

	"k8s.io/klog/v2"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// sortByPriority returns the order in which bundles are placed: scarcest
// demand first. Bundles compare descending by GPU, then by every custom
// resource either bundle names (ascending id, missing counts as 0), then by
// object store memory, memory and CPU. Equal bundles keep caller order.
// perm[k] is the caller index of the k-th bundle to place.
func sortByPriority(requests []*resources.ResourceRequest) []int {
	for i, r := range requests {
		if len(r.Predefined) != resources.PredefinedResourceCount {
			err := fmt.Errorf("bundle %d has %d predefined resources, expected %d", i, len(r.Predefined), resources.PredefinedResourceCount)
			klog.ErrorS(err, "Invalid bundle")
			panic(err)
		}
	}

	perm := make([]int, len(requests))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return comparePriority(requests[perm[i]], requests[perm[j]]) > 0
	})
	return perm
}

// comparePriority returns 1 if a should be placed before b, -1 if after and
// 0 if neither takes precedence.
func comparePriority(a, b *resources.ResourceRequest) int {
	if c := a.Get(resources.GPU).Cmp(b.Get(resources.GPU)); c != 0 {
		return c
	}
	for _, id := range unionCustomIDs(a, b) {
		if c := a.Custom[id].Cmp(b.Custom[id]); c != 0 {
			return c
		}
	}
	for _, r := range []resources.PredefinedResource{resources.ObjectStoreMemory, resources.Memory, resources.CPU} {
		if c := a.Get(r).Cmp(b.Get(r)); c != 0 {
			return c
		}
	}
	return 0
}

func unionCustomIDs(a, b *resources.ResourceRequest) []resources.CustomResourceID {
	ids := make([]resources.CustomResourceID, 0, len(a.Custom)+len(b.Custom))
	ids = append(ids, a.SortedCustomIDs()...)
	for id := range b.Custom {
		if _, ok := a.Custom[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// restoreOrder maps nodes chosen in priority order back to caller order:
// out[perm[k]] = nodes[k].
func restoreOrder(nodes []resources.NodeID, perm []int) []resources.NodeID {
	out := make([]resources.NodeID, len(nodes))
	for k, idx := range perm {
		out[idx] = nodes[k]
	}
	return out
}
