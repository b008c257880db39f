/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package discipline

import (
	"math"
	"time"

	"github.com/eclesh/welford"
	log "github.com/sirupsen/logrus"
)

// DefaultPrecisionSamples is how many snapshots EstimatePrecision takes by default
const DefaultPrecisionSamples = 10000

// precision is reported as log2 seconds, we never claim better than 2^-32
const (
	minPrecision     = -32
	maxPrecision     = 0
	precisionBatches = 10
)

// EstimatePrecision measures the cost of a snapshot and returns it as NTP precision,
// floor(log2(mean seconds per call)).
func EstimatePrecision(src SnapshotSource, samples int) int8 {
	if samples <= 0 {
		samples = DefaultPrecisionSamples
	}
	batch := samples / precisionBatches
	if batch == 0 {
		batch = 1
	}
	batchMeans := welford.New()
	var total time.Duration
	taken := 0
	for taken < samples {
		n := min(batch, samples-taken)
		start := time.Now()
		for i := 0; i < n; i++ {
			_ = src.Snapshot()
		}
		elapsed := time.Since(start)
		total += elapsed
		taken += n
		batchMeans.Add(elapsed.Seconds() / float64(n))
	}
	mean := total.Seconds() / float64(samples)
	precision := precisionFromMean(mean)
	log.Debugf("[clock] snapshot costs %.3gs ± %.3gs, precision %d", mean, batchMeans.Stddev(), precision)
	return precision
}

func precisionFromMean(mean float64) int8 {
	if mean <= 0 {
		return minPrecision
	}
	p := math.Floor(math.Log2(mean))
	if p < minPrecision {
		return minPrecision
	}
	if p > maxPrecision {
		return maxPrecision
	}
	return int8(p)
}
