package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	v1 "github.com/NVIDIA/bundle-scheduler/api/config/v1"
	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

func newTestParser() *ResourceParser {
	return NewResourceParser(v1.GetDefaultResourceNames(), resources.NewResourceIDMap())
}

func TestParseRequest(t *testing.T) {
	p := newTestParser()
	req, err := p.ParseRequest(map[string]string{
		"cpu":            "1500m",
		"memory":         "1Gi",
		"nvidia.com/gpu": "1",
		"accelerator":    "0.5",
	})
	require.NoError(t, err)
	require.Equal(t, q(1.5), req.Get(resources.CPU))
	require.Equal(t, q(1024*1024*1024), req.Get(resources.Memory))
	require.Equal(t, q(1), req.Get(resources.GPU))

	id, ok := p.IDs().Lookup("accelerator")
	require.True(t, ok)
	require.Equal(t, q(0.5), req.Custom[id])

	_, err = p.ParseRequest(map[string]string{"cpu": "-1"})
	require.ErrorContains(t, err, "negative")
	_, err = p.ParseRequest(map[string]string{"cpu": "lots"})
	require.Error(t, err)
}

func TestDescribeRequest(t *testing.T) {
	p := newTestParser()
	bundle := map[string]string{"cpu": "1.5", "nvidia.com/gpu": "1", "accelerator": "0.5"}
	req, err := p.ParseRequest(bundle)
	require.NoError(t, err)
	require.Equal(t, bundle, p.Describe(req))
}

func TestParseRequestRejectsOverflow(t *testing.T) {
	p := newTestParser()
	for _, memory := range []string{"1Ei", "2000Pi"} {
		_, err := p.ParseRequest(map[string]string{"cpu": "1", "memory": memory})
		require.ErrorContains(t, err, "out of range", memory)
	}
	_, err := p.ParseNode(v1.NodeSnapshot{ID: "x", Total: map[string]string{"memory": "1Ei"}})
	require.ErrorContains(t, err, "out of range")
}

func TestParseNode(t *testing.T) {
	p := newTestParser()
	node, err := p.ParseNode(v1.NodeSnapshot{
		ID:        "node-1",
		Total:     map[string]string{"cpu": "8", "nvidia.com/gpu": "2", "tpu": "4"},
		Available: map[string]string{"cpu": "3"},
	})
	require.NoError(t, err)
	require.Equal(t, resources.ResourceCapacity{Total: q(8), Available: q(3)}, node.Predefined[resources.CPU])
	require.Equal(t, resources.ResourceCapacity{Total: q(2), Available: q(2)}, node.Predefined[resources.GPU])
	tpu, _ := p.IDs().Lookup("tpu")
	require.Equal(t, resources.ResourceCapacity{Total: q(4), Available: q(4)}, node.Custom[tpu])

	_, err = p.ParseNode(v1.NodeSnapshot{ID: "x", Total: map[string]string{"cpu": "1"}, Available: map[string]string{"cpu": "2"}})
	require.ErrorContains(t, err, "exceeds total")

	_, err = p.ParseNode(v1.NodeSnapshot{ID: "x", Available: map[string]string{"cpu": "2"}})
	require.ErrorContains(t, err, "has no total")
}

func TestLoadSnapshotReplacesNodes(t *testing.T) {
	m := NewClusterResourceManager()
	require.NoError(t, m.AddOrUpdateNode("stale", resources.NewNodeResources(), nil))

	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "snapshot.yaml")
	require.NoError(t, os.WriteFile(snapshotPath, []byte(`
nodes:
- id: node-1
  labels: {zone: a}
  total: {cpu: "4"}
- id: node-2
  total: {cpu: "2", custom_label: "1"}
`), 0600))
	bundlesPath := filepath.Join(dir, "bundles.yaml")
	require.NoError(t, os.WriteFile(bundlesPath, []byte(`
bundles:
- {cpu: "1"}
- {custom_label: "1"}
`), 0600))

	p := newTestParser()
	require.NoError(t, LoadSnapshotFile(m, p, snapshotPath))
	require.Equal(t, []resources.NodeID{"node-1", "node-2"}, m.NodeIDs())
	require.Equal(t, "a", m.NodeLabels("node-1")["zone"])

	bundles, err := LoadBundlesFile(p, bundlesPath)
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	id, _ := p.IDs().Lookup("custom_label")
	require.True(t, m.AcquireResources("node-2", bundles[1]))
	n, _ := m.GetNodeResources("node-2")
	require.True(t, n.Custom[id].Available.IsZero())
}
