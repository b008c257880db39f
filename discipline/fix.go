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

// maxTimewarps is how many consecutive backward fixes we tolerate minus one
const maxTimewarps = 2

// FixRecord is a single parsed GPS fix
type FixRecord struct {
	UTCSeconds    int64
	Satellites    uint8
	FixQuality    uint8
	SentenceValid bool
}

// FixIngestor keeps the GPS side of the clock state
type FixIngestor struct {
	locked     bool
	timewarps  uint32
	satellites uint8
	fixQuality uint8

	fixes          uint64
	ignored        uint64
	lateFixes      uint64
	corrections    uint64
	totalTimewarps uint64
}

// OnFix consumes a GPS fix. Fixes are used to correct the second counter and
// to gate trust, the PPS edges remain the only source of sub-second timing.
func (c *Clock) OnFix(fix FixRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !fix.SentenceValid {
		c.ingestor.ignored++
		return
	}
	c.ingestor.fixes++
	c.ingestor.satellites = fix.Satellites
	c.ingestor.fixQuality = fix.FixQuality

	if fix.FixQuality > 0 {
		if c.lateLocked() {
			c.ingestor.lateFixes++
		} else if c.correctLocked(fix.UTCSeconds) {
			// wait for the next fix before re-arming
			return
		}
	}

	good := fix.Satellites >= c.cfg.MinSatellites && fix.FixQuality >= c.cfg.MinFixQuality
	switch {
	case good && !c.ingestor.locked:
		c.ingestor.locked = true
		c.armLocked()
	case !good && (c.ingestor.locked || c.validity.current.State != StateInvalid):
		c.invalidateLocked(ReasonFixLost)
	}
}

// correctLocked applies the fix time to the second counter.
// It returns true if the fix forced the clock Invalid.
func (c *Clock) correctLocked(seconds int64) bool {
	if c.validity.current.State == StateValid && seconds < c.seconds {
		// one step back is serial latency, two in a row is a broken receiver
		c.ingestor.timewarps++
		c.ingestor.totalTimewarps++
		if c.ingestor.timewarps >= maxTimewarps {
			c.invalidateLocked(ReasonTimewarp)
			return true
		}
		return false
	}
	if seconds != c.seconds {
		c.seconds = seconds
		c.ingestor.corrections++
	}
	c.ingestor.timewarps = 0
	return false
}

// lateLocked tells if a fix arriving now is too far from the edge it describes
func (c *Clock) lateLocked() bool {
	if c.cfg.LateFixThreshold <= 0 || !c.tracker.haveBaseline {
		return false
	}
	now := c.ticks.Ticks()
	if c.tracker.overdue(now) {
		return true
	}
	return ticksToDuration(c.tracker.sinceEdge(now), c.tracker.ticksPerSecond) > c.cfg.LateFixThreshold
}
