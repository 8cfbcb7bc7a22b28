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

package resources

import (
	"fmt"
	"math"
	"strconv"

	"k8s.io/apimachinery/pkg/api/resource"
)

// QuantityScale is the number of fixed-point units per whole resource unit.
const QuantityScale = 10000

// quantityScaleExp is log10(QuantityScale), used when converting from
// Kubernetes quantities.
const quantityScaleExp = -4

// Quantity is a fixed-point resource amount. Repeated additions and
// subtractions are exact, unlike float64.
type Quantity int64

// NewQuantity converts a real amount to a Quantity, rounding to the nearest
// fixed-point unit.
func NewQuantity(v float64) Quantity {
	return Quantity(math.Round(v * QuantityScale))
}

// MaxQuantity and MinQuantity bound the amounts a Quantity can hold.
const (
	MaxQuantity Quantity = math.MaxInt64
	MinQuantity Quantity = -math.MaxInt64
)

var (
	maxKubeQuantity = resource.NewScaledQuantity(int64(MaxQuantity), resource.Scale(quantityScaleExp))
	minKubeQuantity = resource.NewScaledQuantity(int64(MinQuantity), resource.Scale(quantityScaleExp))
)

// QuantityFromKube converts a Kubernetes quantity ("500m", "4Gi") to a
// Quantity. Sub-unit precision below 1/QuantityScale is rounded up. Amounts
// outside [MinQuantity, MaxQuantity] are an error.
func QuantityFromKube(q resource.Quantity) (Quantity, error) {
	if q.Cmp(*maxKubeQuantity) > 0 || q.Cmp(*minKubeQuantity) < 0 {
		return 0, fmt.Errorf("quantity %v out of range [%v, %v]", q.String(), MinQuantity, MaxQuantity)
	}
	return Quantity(q.ScaledValue(resource.Scale(quantityScaleExp))), nil
}

// ParseQuantity parses a Kubernetes-notation quantity string.
func ParseQuantity(s string) (Quantity, error) {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, err
	}
	return QuantityFromKube(q)
}

// Add returns q+o, saturating at MinQuantity and MaxQuantity.
func (q Quantity) Add(o Quantity) Quantity {
	switch {
	case o > 0 && q > MaxQuantity-o:
		return MaxQuantity
	case o < 0 && q < MinQuantity-o:
		return MinQuantity
	}
	return q + o
}

// Sub returns q-o, saturating like Add.
func (q Quantity) Sub(o Quantity) Quantity {
	if o == math.MinInt64 {
		if q >= 0 {
			return MaxQuantity
		}
		return q + MaxQuantity + 1
	}
	return q.Add(-o)
}

// Cmp returns -1, 0 or 1 when q is less than, equal to or greater than o.
func (q Quantity) Cmp(o Quantity) int {
	switch {
	case q < o:
		return -1
	case q > o:
		return 1
	}
	return 0
}

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

// Float64 returns the amount in whole resource units.
func (q Quantity) Float64() float64 {
	return float64(q) / QuantityScale
}

func (q Quantity) String() string {
	return strconv.FormatFloat(q.Float64(), 'f', -1, 64)
}
