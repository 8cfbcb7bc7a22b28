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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityArithmeticIsExact(t *testing.T) {
	step := NewQuantity(0.1)
	var sum Quantity
	for i := 0; i < 10; i++ {
		sum = sum.Add(step)
	}
	require.Equal(t, NewQuantity(1), sum)

	for i := 0; i < 10; i++ {
		sum = sum.Sub(step)
	}
	require.True(t, sum.IsZero())
}

func TestQuantityCmp(t *testing.T) {
	assert.Equal(t, -1, NewQuantity(1).Cmp(NewQuantity(2)))
	assert.Equal(t, 0, NewQuantity(2).Cmp(NewQuantity(2)))
	assert.Equal(t, 1, NewQuantity(3).Cmp(NewQuantity(2)))
	assert.True(t, NewQuantity(-0.5).IsNegative())
	assert.Equal(t, 0.25, NewQuantity(0.25).Float64())
	assert.Equal(t, "1.5", NewQuantity(1.5).String())
}

func TestParseQuantity(t *testing.T) {
	testCases := []struct {
		in       string
		expected Quantity
	}{
		{in: "2", expected: NewQuantity(2)},
		{in: "500m", expected: NewQuantity(0.5)},
		{in: "1Ki", expected: NewQuantity(1024)},
		{in: "0", expected: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			q, err := ParseQuantity(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.expected, q)
		})
	}

	_, err := ParseQuantity("two")
	require.Error(t, err)
}

func TestParseQuantityOutOfRange(t *testing.T) {
	for _, in := range []string{"1Ei", "2000Pi", "-1Ei", "922337203685478"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseQuantity(in)
			require.ErrorContains(t, err, "out of range")
		})
	}

	q, err := ParseQuantity("922337203685477")
	require.NoError(t, err)
	require.Equal(t, Quantity(9223372036854770000), q)
}

func TestQuantitySaturates(t *testing.T) {
	assert.Equal(t, MaxQuantity, MaxQuantity.Add(NewQuantity(1)))
	assert.Equal(t, MinQuantity, MinQuantity.Sub(NewQuantity(1)))
	assert.Equal(t, MaxQuantity, NewQuantity(1).Sub(MinQuantity))
	assert.Equal(t, NewQuantity(-2), NewQuantity(1).Sub(NewQuantity(3)))
}

func TestResourceRequestValidate(t *testing.T) {
	require.NoError(t, NewResourceRequest().Set(CPU, NewQuantity(1)).Validate())
	require.ErrorContains(t, NewResourceRequest().Set(Memory, NewQuantity(-1)).Validate(), "negative")
	require.ErrorContains(t, NewResourceRequest().SetCustom(3, NewQuantity(-1)).Validate(), "custom(3)")

	n := NewNodeResources().SetPredefined(Memory, NewQuantity(4), NewQuantity(4))
	require.False(t, n.IsAvailable(NewResourceRequest().Set(Memory, NewQuantity(-1))))
	require.False(t, n.IsFeasible(NewResourceRequest().Set(Memory, NewQuantity(-1))))
}

func TestNodeResourcesValidate(t *testing.T) {
	n := NewNodeResources().SetPredefined(CPU, NewQuantity(4), NewQuantity(2))
	require.NoError(t, n.Validate())

	n.SetPredefined(Memory, NewQuantity(1), NewQuantity(2))
	require.ErrorContains(t, n.Validate(), "exceeds total")

	n = NewNodeResources().SetCustom(7, NewQuantity(1), NewQuantity(-1))
	require.ErrorContains(t, n.Validate(), "negative")
}

func TestNodeResourcesIsAvailableAndFeasible(t *testing.T) {
	node := NewNodeResources().
		SetPredefined(CPU, NewQuantity(8), NewQuantity(2)).
		SetCustom(1, NewQuantity(4), NewQuantity(4))

	testCases := []struct {
		description string
		req         *ResourceRequest
		available   bool
		feasible    bool
	}{
		{
			description: "fits availability",
			req:         NewResourceRequest().Set(CPU, NewQuantity(2)),
			available:   true,
			feasible:    true,
		},
		{
			description: "fits only total",
			req:         NewResourceRequest().Set(CPU, NewQuantity(6)),
			available:   false,
			feasible:    true,
		},
		{
			description: "exceeds total",
			req:         NewResourceRequest().Set(CPU, NewQuantity(9)),
		},
		{
			description: "missing custom resource",
			req:         NewResourceRequest().SetCustom(2, NewQuantity(1)),
		},
		{
			description: "custom resource within capacity",
			req:         NewResourceRequest().SetCustom(1, NewQuantity(4)),
			available:   true,
			feasible:    true,
		},
		{
			description: "extra predefined dimension requested as zero",
			req:         &ResourceRequest{Predefined: []Quantity{0, 0, 0, 0, 0}},
			available:   true,
			feasible:    true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.available, node.IsAvailable(tc.req))
			assert.Equal(t, tc.feasible, node.IsFeasible(tc.req))
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	req := NewResourceRequest().Set(CPU, NewQuantity(1)).SetCustom(3, NewQuantity(1))
	c := req.Clone()
	c.Set(CPU, NewQuantity(5)).SetCustom(3, NewQuantity(5))
	require.Equal(t, NewQuantity(1), req.Get(CPU))
	require.Equal(t, NewQuantity(1), req.Custom[3])

	node := NewNodeResources().SetPredefined(GPU, NewQuantity(1), NewQuantity(1))
	nc := node.Clone()
	nc.SetPredefined(GPU, NewQuantity(1), 0)
	require.Equal(t, NewQuantity(1), node.Predefined[GPU].Available)
}

func TestResourceIDMap(t *testing.T) {
	m := NewResourceIDMap()
	a := m.Get("accelerator_type:A100")
	b := m.Get("custom_label")
	require.NotEqual(t, a, b)
	require.Equal(t, a, m.Get("accelerator_type:A100"))

	id, ok := m.Lookup("custom_label")
	require.True(t, ok)
	require.Equal(t, b, id)

	_, ok = m.Lookup("unknown")
	require.False(t, ok)
	require.Equal(t, "custom_label", m.Name(b))
	require.Equal(t, "custom(99)", m.Name(99))
}

func TestSortedNodeIDs(t *testing.T) {
	view := ClusterResourceView{
		"node-c": NewNodeResources(),
		"node-a": NewNodeResources(),
		"node-b": NewNodeResources(),
	}
	require.Equal(t, []NodeID{"node-a", "node-b", "node-c"}, view.SortedNodeIDs())
}
