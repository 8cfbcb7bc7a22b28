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

package v1

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// ClusterSnapshot is the file representation of a point-in-time view of the
// cluster's resources.
type ClusterSnapshot struct {
	Nodes []NodeSnapshot `json:"nodes" yaml:"nodes"`
}

// NodeSnapshot describes one node. Quantities use Kubernetes notation
// ("2", "500m", "4Gi").
type NodeSnapshot struct {
	// ID is the node id used in decisions.
	ID string `json:"id" yaml:"id"`
	// Name is a human readable name, defaults to ID.
	Name   string            `json:"name,omitempty"   yaml:"name,omitempty"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Total  map[string]string `json:"total"            yaml:"total"`
	// Available defaults to Total for every resource it omits.
	Available map[string]string `json:"available,omitempty" yaml:"available,omitempty"`
}

// DisplayName returns Name, or ID when no name is set.
func (n NodeSnapshot) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// BundleSet is the file representation of the bundles of one placement
// group, in caller order.
type BundleSet struct {
	Bundles []map[string]string `json:"bundles" yaml:"bundles"`
}

// LoadClusterSnapshot reads a snapshot file in YAML or JSON.
func LoadClusterSnapshot(path string) (*ClusterSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	var snapshot ClusterSnapshot
	if err := yaml.UnmarshalStrict(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot file %v: %w", path, err)
	}
	seen := make(map[string]bool)
	for i, n := range snapshot.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node %d in %v has no id", i, path)
		}
		if seen[n.ID] {
			return nil, fmt.Errorf("duplicate node id %q in %v", n.ID, path)
		}
		seen[n.ID] = true
	}
	return &snapshot, nil
}

// LoadBundleSet reads a bundle file in YAML or JSON.
func LoadBundleSet(path string) (*BundleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle file: %w", err)
	}
	var bundles BundleSet
	if err := yaml.UnmarshalStrict(data, &bundles); err != nil {
		return nil, fmt.Errorf("unmarshal bundle file %v: %w", path, err)
	}
	return &bundles, nil
}
