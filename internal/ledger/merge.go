package ledger

import (
	"fmt"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// DeductRequest subtracts req from node's availability in place. It returns
// an error, leaving node untouched, if req has a negative dimension or any
// dimension has insufficient availability.
func DeductRequest(node *resources.NodeResources, req *resources.ResourceRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if !node.IsAvailable(req) {
		return fmt.Errorf("insufficient capacity for %v", req)
	}
	for i, q := range req.Predefined {
		if q.IsZero() || i >= len(node.Predefined) {
			continue
		}
		node.Predefined[i].Available = node.Predefined[i].Available.Sub(q)
	}
	for id, q := range req.Custom {
		c, ok := node.Custom[id]
		if !ok || q.IsZero() {
			continue
		}
		c.Available = c.Available.Sub(q)
		node.Custom[id] = c
	}
	return nil
}

// RestoreRequest adds req back to node's availability in place. Each
// dimension is clamped at its total. A negative dimension is an error.
func RestoreRequest(node *resources.NodeResources, req *resources.ResourceRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	for i, q := range req.Predefined {
		if i >= len(node.Predefined) && !q.IsZero() {
			return fmt.Errorf("node has no %s", resources.PredefinedResource(i))
		}
	}
	for id, q := range req.Custom {
		if _, ok := node.Custom[id]; !ok && !q.IsZero() {
			return fmt.Errorf("node has no custom(%d)", id)
		}
	}

	for i, q := range req.Predefined {
		if q.IsZero() {
			continue
		}
		node.Predefined[i].Available = clamp(node.Predefined[i].Available.Add(q), node.Predefined[i].Total)
	}
	for id, q := range req.Custom {
		if q.IsZero() {
			continue
		}
		c := node.Custom[id]
		c.Available = clamp(c.Available.Add(q), c.Total)
		node.Custom[id] = c
	}
	return nil
}

func clamp(q, total resources.Quantity) resources.Quantity {
	if q.Cmp(total) > 0 {
		return total
	}
	return q
}
