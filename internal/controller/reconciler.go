package controller

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/NVIDIA/bundle-scheduler/internal/ledger"
	"github.com/NVIDIA/bundle-scheduler/internal/resources"
)

// PodNodeNameField indexes pods by the node they are bound to.
const PodNodeNameField = "spec.nodeName"

// NodeReconciler keeps a ClusterResourceManager in step with the nodes of a
// cluster and the pods bound to them. Nodes not matching Selector are kept
// out of the ledger; a nil Selector matches every node.
type NodeReconciler struct {
	client.Client
	Ledger   *ledger.ClusterResourceManager
	Parser   *ledger.ResourceParser
	Selector labels.Selector
}

func (r *NodeReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)
	id := resources.NodeID(req.Name)

	var node corev1.Node
	if err := r.Get(ctx, types.NamespacedName{Name: req.Name}, &node); err != nil {
		if apierrors.IsNotFound(err) {
			if r.Ledger.RemoveNode(id) {
				logger.V(2).Info("Removed deleted node")
			}
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}
	if node.Spec.Unschedulable || !node.DeletionTimestamp.IsZero() {
		if r.Ledger.RemoveNode(id) {
			logger.V(2).Info("Removed unschedulable node")
		}
		return ctrl.Result{}, nil
	}
	if r.Selector != nil && !r.Selector.Matches(labels.Set(node.Labels)) {
		if r.Ledger.RemoveNode(id) {
			logger.V(2).Info("Removed node no longer matching the selector")
		}
		return ctrl.Result{}, nil
	}

	var pods corev1.PodList
	if err := r.List(ctx, &pods, client.MatchingFields{PodNodeNameField: node.Name}); err != nil {
		return ctrl.Result{}, fmt.Errorf("listing pods on %v: %w", node.Name, err)
	}
	nr, err := r.Parser.NodeFromKube(&node, pods.Items)
	if err != nil {
		// Requeueing cannot fix a malformed node.
		logger.Error(err, "Ignoring node")
		r.Ledger.RemoveNode(id)
		return ctrl.Result{}, nil
	}
	if err := r.Ledger.AddOrUpdateNode(id, nr, node.Labels); err != nil {
		return ctrl.Result{}, err
	}
	logger.V(4).Info("Updated node", "pods", len(pods.Items))
	return ctrl.Result{}, nil
}

// SetupWithManager registers the pod index and the node and pod watches.
func (r *NodeReconciler) SetupWithManager(ctx context.Context, mgr ctrl.Manager) error {
	if err := mgr.GetFieldIndexer().IndexField(ctx, &corev1.Pod{}, PodNodeNameField, IndexPodNodeName); err != nil {
		return fmt.Errorf("indexing pods: %w", err)
	}
	return ctrl.NewControllerManagedBy(mgr).
		Named("bundle-scheduler-nodes").
		For(&corev1.Node{}).
		Watches(&corev1.Pod{}, handler.EnqueueRequestsFromMapFunc(podToNode)).
		Complete(r)
}

// IndexPodNodeName is the index function for PodNodeNameField.
func IndexPodNodeName(obj client.Object) []string {
	pod, ok := obj.(*corev1.Pod)
	if !ok || pod.Spec.NodeName == "" {
		return nil
	}
	return []string{pod.Spec.NodeName}
}

func podToNode(_ context.Context, obj client.Object) []reconcile.Request {
	names := IndexPodNodeName(obj)
	if len(names) == 0 {
		return nil
	}
	return []reconcile.Request{{NamespacedName: types.NamespacedName{Name: names[0]}}}
}
