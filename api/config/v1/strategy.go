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
	"fmt"
	"strings"
)

// Strategy is the placement strategy named in a config file or on the
// command line.
type Strategy string

const (
	StrategyPack         Strategy = "PACK"
	StrategySpread       Strategy = "SPREAD"
	StrategyStrictPack   Strategy = "STRICT_PACK"
	StrategyStrictSpread Strategy = "STRICT_SPREAD"
)

func (s Strategy) String() string { return string(s) }

// ParseStrategy accepts the strategy names case-insensitively, with either
// '_' or '-' as separator.
func ParseStrategy(s string) (Strategy, error) {
	normalized := Strategy(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	switch normalized {
	case StrategyPack, StrategySpread, StrategyStrictPack, StrategyStrictSpread:
		return normalized, nil
	}
	return "", fmt.Errorf("unknown placement strategy %q", s)
}
