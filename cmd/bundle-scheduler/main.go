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
	"flag"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	v1 "github.com/NVIDIA/bundle-scheduler/api/config/v1"
)

var version = "dev"

func main() {
	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	defer klog.Flush()

	c := cli.NewApp()
	c.Name = "bundle-scheduler"
	c.Usage = "Decide node placements for groups of resource bundles"
	c.Version = version
	c.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "verbosity",
			Usage:   "klog verbosity level",
			EnvVars: []string{"BUNDLE_SCHEDULER_VERBOSITY"},
		},
	}
	c.Before = func(ctx *cli.Context) error {
		if ctx.IsSet("verbosity") {
			return klogFlags.Set("v", fmt.Sprint(ctx.Int("verbosity")))
		}
		return nil
	}
	c.Commands = []*cli.Command{
		scheduleCommand(),
		watchCommand(),
	}

	if err := c.Run(os.Args); err != nil {
		klog.ErrorS(err, "Critical error")
		klog.Flush()
		os.Exit(1)
	}
}

// commonFlags are accepted by every command and override the config file.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config-file",
			Usage:   "the path to a config file as an alternative to command line options or environment variables",
			EnvVars: []string{"CONFIG_FILE"},
		},
		&cli.StringFlag{
			Name:    "strategy",
			Value:   v1.StrategyPack.String(),
			Usage:   "the placement strategy:\n\t\t[PACK | SPREAD | STRICT_PACK | STRICT_SPREAD]",
			EnvVars: []string{"STRATEGY"},
		},
		&cli.StringFlag{
			Name:    "snapshot",
			Usage:   "the path of a cluster snapshot file",
			EnvVars: []string{"SNAPSHOT"},
		},
		&cli.StringFlag{
			Name:    "bundles",
			Usage:   "the path of the bundle file to place",
			EnvVars: []string{"BUNDLES"},
		},
		&cli.StringFlag{
			Name:    "kubeconfig",
			Usage:   "read nodes and pods from a Kubernetes cluster instead of a snapshot; 'in-cluster' uses the service account",
			EnvVars: []string{"BUNDLE_SCHEDULER_KUBECONFIG"},
		},
		&cli.StringFlag{
			Name:    "node-selector",
			Usage:   "a label selector restricting the candidate nodes",
			EnvVars: []string{"NODE_SELECTOR"},
		},
		&cli.StringSliceFlag{
			Name:    "exclude-nodes",
			Usage:   "node ids that are never candidates",
			EnvVars: []string{"EXCLUDE_NODES"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write the decision to this file instead of stdout",
			EnvVars: []string{"OUTPUT"},
		},
		&cli.StringFlag{
			Name:    "output-format",
			Value:   v1.OutputFormatJSON,
			Usage:   "the decision format:\n\t\t[json | yaml]",
			EnvVars: []string{"OUTPUT_FORMAT"},
		},
	}
}

// loadConfig reads the config file, if any, and applies the command line.
func loadConfig(c *cli.Context) (*v1.Config, error) {
	config := v1.DefaultConfig()
	if path := c.String("config-file"); path != "" {
		var err error
		config, err = v1.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("unable to load config: %w", err)
		}
	}
	config.Flags.UpdateFromCLIFlags(c)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Flags.Bundles == "" {
		return nil, fmt.Errorf("--bundles is required")
	}
	if config.Flags.Snapshot == "" && config.Flags.Kubeconfig == "" {
		return nil, fmt.Errorf("one of --snapshot or --kubeconfig is required")
	}
	return config, nil
}
