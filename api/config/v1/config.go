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
	"strings"

	"sigs.k8s.io/yaml"
)

// Version indicates the version of the config file format.
const Version = "v1"

// Output formats supported by the schedule command.
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Config is the versioned configuration of the bundle scheduler.
type Config struct {
	Version   string        `json:"version"             yaml:"version"`
	Flags     Flags         `json:"flags,omitempty"     yaml:"flags,omitempty"`
	Resources ResourceNames `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// Flags holds the command line settings that may also be set in a config
// file. Values given on the command line take precedence.
type Flags struct {
	// Strategy is one of PACK, SPREAD, STRICT_PACK or STRICT_SPREAD.
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// Snapshot is the path of a cluster snapshot file. Ignored when
	// Kubeconfig is set.
	Snapshot string `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	// Bundles is the path of the bundle file to place.
	Bundles string `json:"bundles,omitempty" yaml:"bundles,omitempty"`
	// Kubeconfig points at a cluster whose nodes and pods are used instead of
	// a snapshot file. "in-cluster" selects the in-cluster configuration.
	Kubeconfig string `json:"kubeconfig,omitempty" yaml:"kubeconfig,omitempty"`
	// NodeSelector is a label selector restricting candidate nodes.
	NodeSelector string `json:"nodeSelector,omitempty" yaml:"nodeSelector,omitempty"`
	// ExcludeNodes lists node ids that are never candidates.
	ExcludeNodes []string `json:"excludeNodes,omitempty" yaml:"excludeNodes,omitempty"`
	// Output is the file the decision is written to; stdout when empty.
	Output       string `json:"output,omitempty"       yaml:"output,omitempty"`
	OutputFormat string `json:"outputFormat,omitempty" yaml:"outputFormat,omitempty"`
	// MetricsAddr enables a /metrics endpoint for the watch command.
	MetricsAddr string `json:"metricsAddr,omitempty" yaml:"metricsAddr,omitempty"`
}

// ResourceNames maps external resource names onto the predefined resource
// dimensions. Any other name is treated as a custom resource.
type ResourceNames struct {
	CPU               string `json:"cpu,omitempty"               yaml:"cpu,omitempty"`
	Memory            string `json:"memory,omitempty"            yaml:"memory,omitempty"`
	ObjectStoreMemory string `json:"objectStoreMemory,omitempty" yaml:"objectStoreMemory,omitempty"`
	GPU               string `json:"gpu,omitempty"               yaml:"gpu,omitempty"`
}

// Predefined returns the configured names in predefined resource order:
// CPU, memory, object store memory, GPU.
func (n ResourceNames) Predefined() []string {
	return []string{n.CPU, n.Memory, n.ObjectStoreMemory, n.GPU}
}

// GetDefaultResourceNames returns the names used by Kubernetes nodes.
func GetDefaultResourceNames() ResourceNames {
	return ResourceNames{
		CPU:               "cpu",
		Memory:            "memory",
		ObjectStoreMemory: "object_store_memory",
		GPU:               "nvidia.com/gpu",
	}
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Flags: Flags{
			Strategy:     StrategyPack.String(),
			OutputFormat: OutputFormatJSON,
		},
		Resources: GetDefaultResourceNames(),
	}
}

// LoadConfig reads a config file and fills unset fields with defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}
	if config.Version == "" {
		config.Version = Version
	}
	if config.Version != Version {
		return nil, fmt.Errorf("unknown version: %v", config.Version)
	}
	config.Resources = config.Resources.withDefaults()
	return config, config.Validate()
}

// Validate checks the settings that can be checked without touching the
// filesystem or cluster.
func (c *Config) Validate() error {
	if _, err := ParseStrategy(c.Flags.Strategy); err != nil {
		return err
	}
	switch strings.ToLower(c.Flags.OutputFormat) {
	case OutputFormatJSON, OutputFormatYAML:
	default:
		return fmt.Errorf("unsupported output format %q", c.Flags.OutputFormat)
	}
	seen := make(map[string]bool)
	for _, name := range c.Resources.Predefined() {
		if name == "" {
			return fmt.Errorf("predefined resource names must not be empty")
		}
		if seen[name] {
			return fmt.Errorf("resource name %q mapped more than once", name)
		}
		seen[name] = true
	}
	return nil
}

func (n ResourceNames) withDefaults() ResourceNames {
	d := GetDefaultResourceNames()
	if n.CPU == "" {
		n.CPU = d.CPU
	}
	if n.Memory == "" {
		n.Memory = d.Memory
	}
	if n.ObjectStoreMemory == "" {
		n.ObjectStoreMemory = d.ObjectStoreMemory
	}
	if n.GPU == "" {
		n.GPU = d.GPU
	}
	return n
}
