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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/renameio"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	v1 "github.com/NVIDIA/bundle-scheduler/api/config/v1"
	"github.com/NVIDIA/bundle-scheduler/internal/ledger"
	"github.com/NVIDIA/bundle-scheduler/internal/resources"
	"github.com/NVIDIA/bundle-scheduler/internal/scheduler"
)

// Decision is the serialized result of one scheduling decision.
type Decision struct {
	ID        string    `json:"id"`
	Strategy  string    `json:"strategy"`
	Status    string    `json:"status"`
	Nodes     []string  `json:"nodes,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Run one placement decision and write it out",
		Flags: commonFlags(),
		Action: func(c *cli.Context) error {
			config, err := loadConfig(c)
			if err != nil {
				return err
			}
			r, err := newRunner(config, nil)
			if err != nil {
				return err
			}
			_, err = r.decideAndWrite(c.Context, os.Stdout)
			return err
		},
	}
}

// runner performs decisions for one configuration.
type runner struct {
	config     *v1.Config
	strategy   scheduler.SchedulingType
	ledger     *ledger.ClusterResourceManager
	parser     *ledger.ResourceParser
	scheduler  *scheduler.Scheduler
	client     kubernetes.Interface
	restConfig *rest.Config
	selector   labels.Selector
	excluded   sets.Set[string]
	// tracked is kept current by the node controller while watching; each
	// decision then runs against a copy of it.
	tracked *ledger.ClusterResourceManager
}

func newRunner(config *v1.Config, metrics *scheduler.Metrics) (*runner, error) {
	strategy, err := scheduler.ParseSchedulingType(config.Flags.Strategy)
	if err != nil {
		return nil, err
	}
	selector, err := labels.Parse(config.Flags.NodeSelector)
	if err != nil {
		return nil, fmt.Errorf("invalid node selector: %w", err)
	}

	l := ledger.NewClusterResourceManager()
	r := &runner{
		config:    config,
		strategy:  strategy,
		ledger:    l,
		parser:    ledger.NewResourceParser(config.Resources, resources.NewResourceIDMap()),
		scheduler: scheduler.NewScheduler(l, scheduler.WithMetrics(metrics)),
		selector:  selector,
		excluded:  sets.New(config.Flags.ExcludeNodes...),
	}
	if config.Flags.Kubeconfig != "" {
		r.restConfig, err = newRestConfig(config.Flags.Kubeconfig)
		if err != nil {
			return nil, err
		}
		r.client, err = kubernetes.NewForConfig(r.restConfig)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func newRestConfig(kubeconfig string) (*rest.Config, error) {
	var restConfig *rest.Config
	var err error
	if kubeconfig == "in-cluster" {
		restConfig, err = rest.InClusterConfig()
	} else {
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build config from kubeconfig %s: %w", kubeconfig, err)
	}
	return restConfig, nil
}

// refresh reloads the cluster state from its source.
func (r *runner) refresh(ctx context.Context) error {
	if r.tracked != nil {
		r.ledger.CopyFrom(r.tracked)
		return nil
	}
	if r.client != nil {
		return ledger.SyncFromKubernetes(ctx, r.client, r.ledger, r.parser, r.selector)
	}
	return ledger.LoadSnapshotFile(r.ledger, r.parser, r.config.Flags.Snapshot)
}

func (r *runner) filter() scheduler.NodeFilter {
	if r.selector.Empty() && r.excluded.Len() == 0 {
		return nil
	}
	return func(id resources.NodeID) bool {
		if r.excluded.Has(string(id)) {
			return false
		}
		return r.selector.Matches(labels.Set(r.ledger.NodeLabels(id)))
	}
}

// decide refreshes the cluster state and places the current bundles.
func (r *runner) decide(ctx context.Context) (*Decision, error) {
	if err := r.refresh(ctx); err != nil {
		return nil, fmt.Errorf("loading cluster state: %w", err)
	}
	bundles, err := ledger.LoadBundlesFile(r.parser, r.config.Flags.Bundles)
	if err != nil {
		return nil, fmt.Errorf("loading bundles: %w", err)
	}

	id := uuid.New().String()
	result := r.scheduler.Schedule(bundles, r.strategy, r.filter())
	klog.InfoS("Placement decided", "decision", id, "strategy", r.strategy, "bundles", len(bundles), "status", result.Status)

	d := &Decision{
		ID:        id,
		Strategy:  r.strategy.String(),
		Status:    result.Status.String(),
		DecidedAt: time.Now().UTC(),
	}
	for _, n := range result.Nodes {
		d.Nodes = append(d.Nodes, n.String())
	}
	return d, nil
}

func (r *runner) decideAndWrite(ctx context.Context, stdout io.Writer) (*Decision, error) {
	d, err := r.decide(ctx)
	if err != nil {
		return nil, err
	}
	data, err := marshalDecision(d, r.config.Flags.OutputFormat)
	if err != nil {
		return nil, err
	}
	if r.config.Flags.Output == "" {
		_, err = stdout.Write(data)
		return d, err
	}
	if err := renameio.WriteFile(r.config.Flags.Output, data, 0644); err != nil {
		return nil, fmt.Errorf("writing decision: %w", err)
	}
	return d, nil
}

func marshalDecision(d *Decision, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case v1.OutputFormatYAML:
		return yaml.Marshal(d)
	case v1.OutputFormatJSON, "":
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("unsupported output format %q", format)
}
