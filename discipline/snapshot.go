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
	"time"

	ntp "github.com/pulsetime/gpsntp/ntp/protocol"
)

// Snapshot is a consistent read of the clock
type Snapshot struct {
	UTCSeconds     int64
	SubSecondTicks uint32
	TicksPerSecond uint32
	Valid          bool
}

// Snapshot reads seconds, sub-second ticks and validity as of a single instant.
// Sub-second ticks saturate just below a full second when the next edge is overdue.
func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		UTCSeconds:     c.seconds,
		SubSecondTicks: c.tracker.sinceEdge(c.ticks.Ticks()),
		TicksPerSecond: c.tracker.ticksPerSecond,
		Valid:          c.validity.IsValid(),
	}
}

// NTPTime converts the snapshot into NTP timestamp format
func (s Snapshot) NTPTime() (seconds uint32, fraction uint32) {
	return ntp.SecondsToNTP(s.UTCSeconds), ntp.TicksToFraction(s.SubSecondTicks, s.TicksPerSecond)
}

// Time converts the snapshot into time.Time
func (s Snapshot) Time() time.Time {
	if s.TicksPerSecond == 0 {
		return time.Unix(s.UTCSeconds, 0)
	}
	return time.Unix(s.UTCSeconds, int64(ticksToDuration(s.SubSecondTicks, s.TicksPerSecond)))
}
