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

// Status is a diagnostic view of the clock
type Status struct {
	Seconds           int64
	State             ValidityState
	Reason            string
	ValidCount        uint32
	InitialValidSince int64
	Timeouts          uint32

	GPSLocked   bool
	Satellites  uint8
	FixQuality  uint8
	Fixes       uint64
	Ignored     uint64
	LateFixes   uint64
	Corrections uint64
	Timewarps   uint64

	Intervals      IntervalStats
	TicksPerSecond uint32
	Jitter         uint32
	Dispersion     float64
	FrequencyPPM   float64
	IntervalStddev float64
}

// Status returns diagnostics of the clock
func (c *Clock) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Seconds:           c.seconds,
		State:             c.validity.current,
		Reason:            c.validity.reason,
		ValidCount:        c.validity.validCount,
		InitialValidSince: c.validity.initialValidSince,
		Timeouts:          c.validity.timeouts,
		GPSLocked:         c.ingestor.locked,
		Satellites:        c.ingestor.satellites,
		FixQuality:        c.ingestor.fixQuality,
		Fixes:             c.ingestor.fixes,
		Ignored:           c.ingestor.ignored,
		LateFixes:         c.ingestor.lateFixes,
		Corrections:       c.ingestor.corrections,
		Timewarps:         c.ingestor.totalTimewarps,
		Intervals:         c.tracker.Stats(),
		TicksPerSecond:    c.tracker.ticksPerSecond,
		Jitter:            c.tracker.Jitter(),
		Dispersion:        c.tracker.Dispersion(),
		FrequencyPPM:      c.tracker.FrequencyError(),
		IntervalStddev:    c.tracker.IntervalStddev(),
	}
}
