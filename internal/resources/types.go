/*
 * Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package resources

import (
	"fmt"
	"sort"
	"strings"
)

// PredefinedResource indexes the resource dimensions known to the schema.
type PredefinedResource int

const (
	CPU PredefinedResource = iota
	Memory
	ObjectStoreMemory
	GPU

	// PredefinedResourceCount is the length of a full predefined slice.
	PredefinedResourceCount int = iota
)

func (r PredefinedResource) String() string {
	switch r {
	case CPU:
		return "CPU"
	case Memory:
		return "memory"
	case ObjectStoreMemory:
		return "object_store_memory"
	case GPU:
		return "GPU"
	}
	return fmt.Sprintf("predefined(%d)", int(r))
}

// CustomResourceID is an opaque id for a cluster-defined resource.
// See ResourceIDMap for the name <-> id mapping.
type CustomResourceID int64

// NodeID identifies a cluster node. Only equality is meaningful.
type NodeID string

func (id NodeID) String() string { return string(id) }

// ResourceRequest is the demand of a single bundle.
type ResourceRequest struct {
	Predefined []Quantity
	Custom     map[CustomResourceID]Quantity
}

// NewResourceRequest returns an empty request with every predefined
// dimension present.
func NewResourceRequest() *ResourceRequest {
	return &ResourceRequest{
		Predefined: make([]Quantity, PredefinedResourceCount),
		Custom:     make(map[CustomResourceID]Quantity),
	}
}

// Get returns the requested amount of a predefined resource, 0 if the
// request does not define that dimension.
func (r *ResourceRequest) Get(p PredefinedResource) Quantity {
	if int(p) >= len(r.Predefined) {
		return 0
	}
	return r.Predefined[p]
}

// Set sets a predefined amount, growing the slice when needed.
func (r *ResourceRequest) Set(p PredefinedResource, q Quantity) *ResourceRequest {
	for len(r.Predefined) <= int(p) {
		r.Predefined = append(r.Predefined, 0)
	}
	r.Predefined[p] = q
	return r
}

// SetCustom sets a custom resource amount.
func (r *ResourceRequest) SetCustom(id CustomResourceID, q Quantity) *ResourceRequest {
	if r.Custom == nil {
		r.Custom = make(map[CustomResourceID]Quantity)
	}
	r.Custom[id] = q
	return r
}

// Validate reports the first negative dimension of r.
func (r *ResourceRequest) Validate() error {
	for i, q := range r.Predefined {
		if q.IsNegative() {
			return fmt.Errorf("%s: negative request %s", PredefinedResource(i), q)
		}
	}
	for _, id := range sortedCustomIDs(r.Custom) {
		if q := r.Custom[id]; q.IsNegative() {
			return fmt.Errorf("custom(%d): negative request %s", id, q)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (r *ResourceRequest) Clone() *ResourceRequest {
	out := &ResourceRequest{
		Predefined: append([]Quantity(nil), r.Predefined...),
		Custom:     make(map[CustomResourceID]Quantity, len(r.Custom)),
	}
	for id, q := range r.Custom {
		out.Custom[id] = q
	}
	return out
}

func (r *ResourceRequest) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, q := range r.Predefined {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", PredefinedResource(i), q)
	}
	for _, id := range sortedCustomIDs(r.Custom) {
		fmt.Fprintf(&b, ", custom(%d): %s", id, r.Custom[id])
	}
	b.WriteString("}")
	return b.String()
}

// ResourceCapacity is the total and currently available amount of one
// dimension on a node.
type ResourceCapacity struct {
	Total     Quantity
	Available Quantity
}

// NodeResources is the resource state of one node.
// Invariant: 0 <= Available <= Total in every dimension.
type NodeResources struct {
	Predefined []ResourceCapacity
	Custom     map[CustomResourceID]ResourceCapacity
}

// NewNodeResources returns a node with every predefined dimension present
// and zero capacity.
func NewNodeResources() *NodeResources {
	return &NodeResources{
		Predefined: make([]ResourceCapacity, PredefinedResourceCount),
		Custom:     make(map[CustomResourceID]ResourceCapacity),
	}
}

// SetPredefined sets total and available of a predefined resource.
func (n *NodeResources) SetPredefined(p PredefinedResource, total, available Quantity) *NodeResources {
	for len(n.Predefined) <= int(p) {
		n.Predefined = append(n.Predefined, ResourceCapacity{})
	}
	n.Predefined[p] = ResourceCapacity{Total: total, Available: available}
	return n
}

// SetCustom sets total and available of a custom resource.
func (n *NodeResources) SetCustom(id CustomResourceID, total, available Quantity) *NodeResources {
	if n.Custom == nil {
		n.Custom = make(map[CustomResourceID]ResourceCapacity)
	}
	n.Custom[id] = ResourceCapacity{Total: total, Available: available}
	return n
}

// Clone returns a deep copy.
func (n *NodeResources) Clone() *NodeResources {
	out := &NodeResources{
		Predefined: append([]ResourceCapacity(nil), n.Predefined...),
		Custom:     make(map[CustomResourceID]ResourceCapacity, len(n.Custom)),
	}
	for id, c := range n.Custom {
		out.Custom[id] = c
	}
	return out
}

// Validate reports the first dimension breaking 0 <= available <= total.
func (n *NodeResources) Validate() error {
	for i, c := range n.Predefined {
		if err := c.validate(); err != nil {
			return fmt.Errorf("%s: %w", PredefinedResource(i), err)
		}
	}
	for _, id := range sortedCustomIDs(n.Custom) {
		if err := n.Custom[id].validate(); err != nil {
			return fmt.Errorf("custom(%d): %w", id, err)
		}
	}
	return nil
}

func (c ResourceCapacity) validate() error {
	if c.Available.IsNegative() {
		return fmt.Errorf("available %s is negative", c.Available)
	}
	if c.Available > c.Total {
		return fmt.Errorf("available %s exceeds total %s", c.Available, c.Total)
	}
	return nil
}

// IsAvailable reports whether the node's current availability covers req.
func (n *NodeResources) IsAvailable(req *ResourceRequest) bool {
	return n.fits(req, func(c ResourceCapacity) Quantity { return c.Available })
}

// IsFeasible reports whether the node's total capacity covers req, i.e.
// whether the node could ever host it.
func (n *NodeResources) IsFeasible(req *ResourceRequest) bool {
	return n.fits(req, func(c ResourceCapacity) Quantity { return c.Total })
}

// fits never accepts a request with a negative dimension.
func (n *NodeResources) fits(req *ResourceRequest, amount func(ResourceCapacity) Quantity) bool {
	if req.Validate() != nil {
		return false
	}
	for i, q := range req.Predefined {
		if i >= len(n.Predefined) {
			if q > 0 {
				return false
			}
			continue
		}
		if q > amount(n.Predefined[i]) {
			return false
		}
	}
	for id, q := range req.Custom {
		c, ok := n.Custom[id]
		if !ok {
			if q > 0 {
				return false
			}
			continue
		}
		if q > amount(c) {
			return false
		}
	}
	return true
}

// ClusterResourceView maps every known node to its resources.
type ClusterResourceView map[NodeID]*NodeResources

// SortedNodeIDs returns the node ids of the view in ascending order.
func (v ClusterResourceView) SortedNodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(v))
	for id := range v {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedCustomIDs[V any](m map[CustomResourceID]V) []CustomResourceID {
	ids := make([]CustomResourceID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedCustomIDs returns the custom resource ids referenced by req in
// ascending order.
func (r *ResourceRequest) SortedCustomIDs() []CustomResourceID {
	return sortedCustomIDs(r.Custom)
}
