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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestParseStrategy(t *testing.T) {
	testCases := []struct {
		in       string
		expected Strategy
		err      bool
	}{
		{in: "PACK", expected: StrategyPack},
		{in: "spread", expected: StrategySpread},
		{in: "strict-pack", expected: StrategyStrictPack},
		{in: " Strict_Spread ", expected: StrategyStrictSpread},
		{in: "BEST_FIT", err: true},
		{in: "", err: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			s, err := ParseStrategy(tc.in)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, s)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", `
version: v1
flags:
  strategy: strict_spread
  excludeNodes: ["node-3"]
resources:
  gpu: amd.com/gpu
`)
	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "strict_spread", config.Flags.Strategy)
	require.Equal(t, []string{"node-3"}, config.Flags.ExcludeNodes)
	require.Equal(t, OutputFormatJSON, config.Flags.OutputFormat)
	require.Equal(t, []string{"cpu", "memory", "object_store_memory", "amd.com/gpu"}, config.Resources.Predefined())
}

func TestLoadConfigErrors(t *testing.T) {
	testCases := []struct {
		description string
		contents    string
		errContains string
	}{
		{
			description: "unknown version",
			contents:    "version: v2\n",
			errContains: "unknown version",
		},
		{
			description: "unknown strategy",
			contents:    "flags:\n  strategy: random\n",
			errContains: "unknown placement strategy",
		},
		{
			description: "unknown output format",
			contents:    "flags:\n  outputFormat: xml\n",
			errContains: "unsupported output format",
		},
		{
			description: "duplicate resource names",
			contents:    "resources:\n  gpu: cpu\n",
			errContains: "mapped more than once",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "config.yaml", tc.contents))
			require.ErrorContains(t, err, tc.errContains)
		})
	}
}

func TestLoadClusterSnapshot(t *testing.T) {
	path := writeFile(t, "snapshot.yaml", `
nodes:
- id: node-1
  labels:
    zone: a
  total: {cpu: "4", memory: 8Gi}
  available: {cpu: "2"}
- id: node-2
  total: {cpu: "8"}
`)
	snapshot, err := LoadClusterSnapshot(path)
	require.NoError(t, err)
	require.Len(t, snapshot.Nodes, 2)
	require.Equal(t, "a", snapshot.Nodes[0].Labels["zone"])
	require.Equal(t, "2", snapshot.Nodes[0].Available["cpu"])
	require.Equal(t, "8", snapshot.Nodes[1].Total["cpu"])
	require.Equal(t, "node-2", snapshot.Nodes[1].DisplayName())
	require.Equal(t, "gpu box", NodeSnapshot{ID: "n", Name: "gpu box"}.DisplayName())

	_, err = LoadClusterSnapshot(writeFile(t, "dup.yaml", "nodes:\n- id: a\n- id: a\n"))
	require.ErrorContains(t, err, "duplicate node id")

	_, err = LoadClusterSnapshot(writeFile(t, "noid.yaml", "nodes:\n- total: {cpu: \"1\"}\n"))
	require.ErrorContains(t, err, "has no id")
}

func TestLoadBundleSet(t *testing.T) {
	path := writeFile(t, "bundles.json", `{"bundles": [{"cpu": "1"}, {"nvidia.com/gpu": "1", "cpu": "500m"}]}`)
	bundles, err := LoadBundleSet(path)
	require.NoError(t, err)
	require.Len(t, bundles.Bundles, 2)
	require.Equal(t, "500m", bundles.Bundles[1]["cpu"])

	_, err = LoadBundleSet(writeFile(t, "bad.yaml", "bundle: []\n"))
	require.Error(t, err)
}
