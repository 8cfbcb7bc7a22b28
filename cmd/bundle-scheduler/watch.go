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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/NVIDIA/bundle-scheduler/internal/scheduler"
)

func watchCommand() *cli.Command {
	flags := append(commonFlags(),
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "serve Prometheus metrics on this address, e.g. ':9090'",
			EnvVars: []string{"METRICS_ADDR"},
		},
		&cli.DurationFlag{
			Name:    "resync-period",
			Value:   30 * time.Second,
			Usage:   "how often to re-decide when tracking a Kubernetes cluster",
			EnvVars: []string{"RESYNC_PERIOD"},
		},
	)
	return &cli.Command{
		Name:  "watch",
		Usage: "Re-run the placement decision whenever its inputs change",
		Flags: flags,
		Action: func(c *cli.Context) error {
			config, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			metrics := scheduler.NewMetrics(reg)
			if addr := config.Flags.MetricsAddr; addr != "" {
				stop := startMetricsServer(addr, reg)
				defer stop()
			}

			r, err := newRunner(config, metrics)
			if err != nil {
				return err
			}
			var resync time.Duration
			if r.client != nil {
				resync = c.Duration("resync-period")
				if err := r.startController(ctx); err != nil {
					return err
				}
			}
			return r.watch(ctx, resync)
		},
	}
}

// watch decides once, then again whenever the bundle or snapshot file
// changes or the resync period elapses. It returns when ctx is done.
func (r *runner) watch(ctx context.Context, resync time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create FS watcher: %w", err)
	}
	defer watcher.Close()

	files := map[string]bool{}
	for _, f := range []string{r.config.Flags.Bundles, r.config.Flags.Snapshot} {
		if f == "" || (f == r.config.Flags.Snapshot && r.client != nil) {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		files[abs] = true
		// Watch the directory so atomic replacements are seen.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %v: %w", abs, err)
		}
	}

	var tick <-chan time.Time
	if resync > 0 {
		ticker := time.NewTicker(resync)
		defer ticker.Stop()
		tick = ticker.C
	}

	r.decideOrLog(ctx)
	for {
		select {
		case <-ctx.Done():
			klog.InfoS("Stopping watch")
			return nil
		case <-tick:
			r.decideOrLog(ctx)
		case event := <-watcher.Events:
			if !files[filepath.Clean(event.Name)] || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			klog.V(2).InfoS("Input changed", "file", event.Name, "op", event.Op)
			r.decideOrLog(ctx)
		case err := <-watcher.Errors:
			klog.ErrorS(err, "Watcher error")
		}
	}
}

func (r *runner) decideOrLog(ctx context.Context) {
	if _, err := r.decideAndWrite(ctx, os.Stdout); err != nil {
		klog.ErrorS(err, "Decision failed")
	}
}

func startMetricsServer(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		klog.InfoS("Serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.ErrorS(err, "Metrics server failed")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
