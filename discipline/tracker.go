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
	"github.com/eclesh/welford"
)

// IntervalStats are running extrema of PPS intervals within the current session.
// MinTicks == 0 means no interval has been measured yet.
type IntervalStats struct {
	MinTicks  uint32
	MaxTicks  uint32
	LastTicks uint32
	Samples   uint64
}

// Jitter is the spread between the longest and the shortest interval
func (s IntervalStats) Jitter() uint32 {
	if s.MinTicks == 0 {
		return 0
	}
	return s.MaxTicks - s.MinTicks
}

// Dispersion is the worst deviation of any interval from the nominal second, in seconds
func (s IntervalStats) Dispersion(ticksPerSecond uint32) float64 {
	if s.MinTicks == 0 || ticksPerSecond == 0 {
		return 0
	}
	tps := int64(ticksPerSecond)
	worst := max(abs(tps-int64(s.MaxTicks)), abs(tps-int64(s.MinTicks)))
	return float64(worst) / float64(tps)
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// PulseTracker turns tick values of PPS edges into interval statistics.
// It is not safe for concurrent use, Clock serializes all access.
type PulseTracker struct {
	ticksPerSecond uint32
	stats          IntervalStats
	lastEdge       uint32
	haveBaseline   bool
	intervals      *welford.Stats
}

// NewPulseTracker returns a PulseTracker for a counter running at ticksPerSecond
func NewPulseTracker(ticksPerSecond uint32) *PulseTracker {
	return &PulseTracker{
		ticksPerSecond: ticksPerSecond,
		intervals:      welford.New(),
	}
}

// Edge records a PPS edge. The first edge after a rebase only sets the baseline.
func (t *PulseTracker) Edge(tick uint32) {
	if !t.haveBaseline {
		t.lastEdge = tick
		t.haveBaseline = true
		return
	}
	// unsigned subtraction handles counter wrap
	interval := tick - t.lastEdge
	t.lastEdge = tick
	if interval == 0 {
		return
	}
	if t.stats.MinTicks == 0 || interval < t.stats.MinTicks {
		t.stats.MinTicks = interval
	}
	if interval > t.stats.MaxTicks {
		t.stats.MaxTicks = interval
	}
	t.stats.LastTicks = interval
	t.stats.Samples++
	t.intervals.Add(float64(interval))
}

// ResetStats drops interval statistics but keeps the last edge
func (t *PulseTracker) ResetStats() {
	t.stats = IntervalStats{}
	t.intervals = welford.New()
}

// Rebase drops statistics and the last edge, so the next edge becomes the baseline
func (t *PulseTracker) Rebase() {
	t.ResetStats()
	t.haveBaseline = false
	t.lastEdge = 0
}

// Stats returns a copy of the interval statistics
func (t *PulseTracker) Stats() IntervalStats {
	return t.stats
}

// Jitter returns max_ticks - min_ticks
func (t *PulseTracker) Jitter() uint32 {
	return t.stats.Jitter()
}

// Dispersion returns the worst interval deviation from one second, in seconds
func (t *PulseTracker) Dispersion() float64 {
	return t.stats.Dispersion(t.ticksPerSecond)
}

// FrequencyError is the mean interval deviation from nominal in parts per million
func (t *PulseTracker) FrequencyError() float64 {
	if t.stats.Samples == 0 {
		return 0
	}
	tps := float64(t.ticksPerSecond)
	return (t.intervals.Mean() - tps) / tps * 1e6
}

// IntervalStddev is the standard deviation of the intervals in ticks
func (t *PulseTracker) IntervalStddev() float64 {
	if t.stats.Samples < 2 {
		return 0
	}
	return t.intervals.Stddev()
}

// sinceEdge returns ticks elapsed since the last edge, saturated just below a full second
func (t *PulseTracker) sinceEdge(now uint32) uint32 {
	if !t.haveBaseline {
		return 0
	}
	elapsed := now - t.lastEdge
	if elapsed >= t.ticksPerSecond {
		return t.ticksPerSecond - 1
	}
	return elapsed
}

// overdue reports whether a full second passed since the last edge
func (t *PulseTracker) overdue(now uint32) bool {
	return t.haveBaseline && now-t.lastEdge >= t.ticksPerSecond
}
