package ledger

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"

	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// Configurable retry attempts for Kubernetes list calls. Can be adjusted in tests.
var SyncRetryAttempts = 3

// syncBackoff is the delay before retry attempt i+1.
var syncBackoff = func(i int) time.Duration {
	return time.Duration(100*(i+1)) * time.Millisecond
}

// SyncFromKubernetes replaces the contents of m with the schedulable nodes
// of a cluster. A node's available resources are its allocatable resources
// minus the requests of the non-terminal pods bound to it. Nodes that do
// not match selector are skipped; a nil selector matches every node.
func SyncFromKubernetes(ctx context.Context, client kubernetes.Interface, m *ClusterResourceManager, parser *ResourceParser, selector labels.Selector) error {
	if selector == nil {
		selector = labels.Everything()
	}

	var nodes *corev1.NodeList
	err := withRetry(ctx, "list nodes", func() error {
		var err error
		nodes, err = client.CoreV1().Nodes().List(ctx, metav1.ListOptions{LabelSelector: selector.String()})
		return err
	})
	if err != nil {
		return fmt.Errorf("listing nodes: %w", err)
	}

	podSelector := fields.AndSelectors(
		fields.OneTermNotEqualSelector("status.phase", string(corev1.PodSucceeded)),
		fields.OneTermNotEqualSelector("status.phase", string(corev1.PodFailed)),
	)
	var pods *corev1.PodList
	err = withRetry(ctx, "list pods", func() error {
		var err error
		pods, err = client.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{FieldSelector: podSelector.String()})
		return err
	})
	if err != nil {
		return fmt.Errorf("listing pods: %w", err)
	}

	podsByNode := make(map[string][]corev1.Pod)
	for _, pod := range pods.Items {
		if pod.Spec.NodeName == "" {
			continue
		}
		podsByNode[pod.Spec.NodeName] = append(podsByNode[pod.Spec.NodeName], pod)
	}

	present := make(map[resources.NodeID]bool, len(nodes.Items))
	for i := range nodes.Items {
		node := &nodes.Items[i]
		if node.Spec.Unschedulable {
			klog.V(2).InfoS("Skipping unschedulable node", "node", node.Name)
			continue
		}
		nr, err := parser.NodeFromKube(node, podsByNode[node.Name])
		if err != nil {
			return fmt.Errorf("node %v: %w", node.Name, err)
		}
		id := resources.NodeID(node.Name)
		if err := m.AddOrUpdateNode(id, nr, node.Labels); err != nil {
			return err
		}
		present[id] = true
	}
	for _, id := range m.NodeIDs() {
		if !present[id] {
			m.RemoveNode(id)
		}
	}
	klog.InfoS("Synced cluster resources from Kubernetes", "nodes", len(present), "pods", len(pods.Items))
	return nil
}

func withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for i := 0; i < SyncRetryAttempts; i++ {
		if err := fn(); err != nil {
			lastErr = err
			klog.InfoS("Kubernetes call failed", "op", op, "err", err, "attempt", i+1)
			if i == SyncRetryAttempts-1 {
				break
			}
			select {
			case <-time.After(syncBackoff(i)):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
	klog.ErrorS(lastErr, "Kubernetes call failed after retries", "op", op)
	return lastErr
}

func isTerminal(pod *corev1.Pod) bool {
	return pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed
}

// podRequests returns the effective requests of a pod: the sum over its
// containers, raised to the largest init container request per resource.
func podRequests(pod *corev1.Pod) corev1.ResourceList {
	out := corev1.ResourceList{}
	for _, c := range pod.Spec.Containers {
		for name, q := range c.Resources.Requests {
			cur := out[name]
			cur.Add(q)
			out[name] = cur
		}
	}
	for _, c := range pod.Spec.InitContainers {
		for name, q := range c.Resources.Requests {
			if cur, ok := out[name]; !ok || q.Cmp(cur) > 0 {
				out[name] = q.DeepCopy()
			}
		}
	}
	for name, q := range pod.Spec.Overhead {
		cur := out[name]
		cur.Add(q)
		out[name] = cur
	}
	return out
}

// NodeFromKube converts a node's allocatable resources. Available is
// allocatable minus the requests of the non-terminal pods among pods that
// are bound to the node.
func (p *ResourceParser) NodeFromKube(node *corev1.Node, pods []corev1.Pod) (*resources.NodeResources, error) {
	requested := corev1.ResourceList{}
	for i := range pods {
		pod := &pods[i]
		if pod.Spec.NodeName != node.Name || isTerminal(pod) {
			continue
		}
		for name, q := range podRequests(pod) {
			cur := requested[name]
			cur.Add(q)
			requested[name] = cur
		}
	}

	total := make(map[string]resources.Quantity, len(node.Status.Allocatable))
	available := make(map[string]resources.Quantity, len(node.Status.Allocatable))
	for name, q := range node.Status.Allocatable {
		t, err := resources.QuantityFromKube(q)
		if err != nil {
			return nil, fmt.Errorf("allocatable %v: %w", name, err)
		}
		if t.IsNegative() {
			t = 0
		}
		a := t
		if r, ok := requested[name]; ok {
			used, err := resources.QuantityFromKube(r)
			if err != nil {
				// Requests beyond the representable range use up the node.
				used = resources.MaxQuantity
			}
			a = a.Sub(used)
		}
		if a.IsNegative() {
			// Pods can be bound beyond allocatable, e.g. static pods.
			a = 0
		}
		total[string(name)] = t
		available[string(name)] = a
	}
	return p.nodeResources(total, available)
}
