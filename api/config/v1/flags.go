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
	"github.com/urfave/cli/v2"
)

// UpdateFromCLIFlags overrides the config's flags with every flag explicitly
// set on the command line.
func (f *Flags) UpdateFromCLIFlags(c *cli.Context) {
	for _, n := range c.FlagNames() {
		switch n {
		case "strategy":
			updateFromCLIFlag(&f.Strategy, c, n)
		case "snapshot":
			updateFromCLIFlag(&f.Snapshot, c, n)
		case "bundles":
			updateFromCLIFlag(&f.Bundles, c, n)
		case "kubeconfig":
			updateFromCLIFlag(&f.Kubeconfig, c, n)
		case "node-selector":
			updateFromCLIFlag(&f.NodeSelector, c, n)
		case "exclude-nodes":
			updateFromCLIFlag(&f.ExcludeNodes, c, n)
		case "output":
			updateFromCLIFlag(&f.Output, c, n)
		case "output-format":
			updateFromCLIFlag(&f.OutputFormat, c, n)
		case "metrics-addr":
			updateFromCLIFlag(&f.MetricsAddr, c, n)
		}
	}
}

func updateFromCLIFlag[T any](pflag *T, c *cli.Context, flagName string) {
	if !c.IsSet(flagName) {
		return
	}
	switch flag := any(pflag).(type) {
	case *string:
		*flag = c.String(flagName)
	case *[]string:
		*flag = c.StringSlice(flagName)
	case *bool:
		*flag = c.Bool(flagName)
	}
}
