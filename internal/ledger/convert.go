package ledger

import (
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/api/resource"

	v1 "github.com/NVIDIA/bundle-scheduler/api/config/v1"
	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// ResourceParser turns named quantities into requests and node resources.
// Names configured as predefined resources map onto their dimension; every
// other name is interned as a custom resource.
type ResourceParser struct {
	predefined map[string]resources.PredefinedResource
	names      []string
	ids        *resources.ResourceIDMap
}

// NewResourceParser builds a parser for the given name mapping. ids may be
// shared between parsers so that custom ids agree.
func NewResourceParser(names v1.ResourceNames, ids *resources.ResourceIDMap) *ResourceParser {
	p := &ResourceParser{
		predefined: make(map[string]resources.PredefinedResource),
		names:      names.Predefined(),
		ids:        ids,
	}
	for i, name := range names.Predefined() {
		p.predefined[name] = resources.PredefinedResource(i)
	}
	return p
}

// Describe renders the non-zero dimensions of req by resource name, the
// inverse of ParseRequest.
func (p *ResourceParser) Describe(req *resources.ResourceRequest) map[string]string {
	out := make(map[string]string)
	for i, q := range req.Predefined {
		if q.IsZero() {
			continue
		}
		name := resources.PredefinedResource(i).String()
		if i < len(p.names) {
			name = p.names[i]
		}
		out[name] = q.String()
	}
	for id, q := range req.Custom {
		if !q.IsZero() {
			out[p.ids.Name(id)] = q.String()
		}
	}
	return out
}

// IDs returns the custom resource id map used by the parser.
func (p *ResourceParser) IDs() *resources.ResourceIDMap {
	return p.ids
}

// ParseRequest converts a bundle description into a request.
func (p *ResourceParser) ParseRequest(bundle map[string]string) (*resources.ResourceRequest, error) {
	req := resources.NewResourceRequest()
	for _, name := range sortedKeys(bundle) {
		q, err := parseNonNegative(name, bundle[name])
		if err != nil {
			return nil, err
		}
		p.add(name, q, req)
	}
	return req, nil
}

// ParseRequests converts every bundle of a set, keeping their order.
func (p *ResourceParser) ParseRequests(set *v1.BundleSet) ([]*resources.ResourceRequest, error) {
	out := make([]*resources.ResourceRequest, 0, len(set.Bundles))
	for i, b := range set.Bundles {
		req, err := p.ParseRequest(b)
		if err != nil {
			return nil, fmt.Errorf("bundle %d: %w", i, err)
		}
		out = append(out, req)
	}
	return out, nil
}

// ParseNode converts a snapshot node. Resources missing from Available are
// fully available.
func (p *ResourceParser) ParseNode(n v1.NodeSnapshot) (*resources.NodeResources, error) {
	total := make(map[string]resources.Quantity, len(n.Total))
	for name, s := range n.Total {
		q, err := parseNonNegative(name, s)
		if err != nil {
			return nil, fmt.Errorf("total: %w", err)
		}
		total[name] = q
	}
	available := make(map[string]resources.Quantity, len(total))
	for name, q := range total {
		available[name] = q
	}
	for name, s := range n.Available {
		if _, ok := total[name]; !ok {
			return nil, fmt.Errorf("available %v has no total", name)
		}
		q, err := parseNonNegative(name, s)
		if err != nil {
			return nil, fmt.Errorf("available: %w", err)
		}
		available[name] = q
	}
	return p.nodeResources(total, available)
}

func (p *ResourceParser) nodeResources(total, available map[string]resources.Quantity) (*resources.NodeResources, error) {
	node := resources.NewNodeResources()
	for _, name := range sortedKeys(total) {
		if r, ok := p.predefined[name]; ok {
			node.SetPredefined(r, total[name], available[name])
			continue
		}
		node.SetCustom(p.ids.Get(name), total[name], available[name])
	}
	if err := node.Validate(); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *ResourceParser) add(name string, q resources.Quantity, req *resources.ResourceRequest) {
	if r, ok := p.predefined[name]; ok {
		req.Set(r, req.Get(r).Add(q))
		return
	}
	id := p.ids.Get(name)
	req.SetCustom(id, req.Custom[id].Add(q))
}

func parseNonNegative(name, s string) (resources.Quantity, error) {
	kq, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("resource %v: %w", name, err)
	}
	if kq.Sign() < 0 {
		return 0, fmt.Errorf("resource %v: negative quantity %v", name, s)
	}
	q, err := resources.QuantityFromKube(kq)
	if err != nil {
		return 0, fmt.Errorf("resource %v: %w", name, err)
	}
	return q, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
