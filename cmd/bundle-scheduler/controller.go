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

package main

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/NVIDIA/bundle-scheduler/internal/controller"
	"github.com/NVIDIA/bundle-scheduler/internal/ledger"
)

// startController primes a tracked ledger with a full list and then keeps it
// current from node and pod events until ctx is done.
func (r *runner) startController(ctx context.Context) error {
	if r.restConfig == nil {
		return fmt.Errorf("no Kubernetes config")
	}
	ctrl.SetLogger(klog.NewKlogr())

	mgr, err := ctrl.NewManager(r.restConfig, ctrl.Options{
		Metrics:                metricsserver.Options{BindAddress: "0"},
		HealthProbeBindAddress: "0",
	})
	if err != nil {
		return fmt.Errorf("unable to create manager: %w", err)
	}
	tracked := ledger.NewClusterResourceManager()
	reconciler := &controller.NodeReconciler{
		Client:   mgr.GetClient(),
		Ledger:   tracked,
		Parser:   r.parser,
		Selector: r.selector,
	}
	if err := reconciler.SetupWithManager(ctx, mgr); err != nil {
		return fmt.Errorf("unable to set up node controller: %w", err)
	}

	if err := ledger.SyncFromKubernetes(ctx, r.client, tracked, r.parser, r.selector); err != nil {
		return err
	}
	go func() {
		if err := mgr.Start(ctx); err != nil {
			klog.ErrorS(err, "Node controller stopped")
		}
	}()
	if !mgr.GetCache().WaitForCacheSync(ctx) {
		return fmt.Errorf("timed out waiting for caches to sync")
	}
	r.tracked = tracked
	klog.InfoS("Node controller running", "nodes", len(tracked.NodeIDs()))
	return nil
}
