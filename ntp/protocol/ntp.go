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

/*
Package protocol implements ntp packet and basic functions to work with.
It provides quick and transparent translation between 48 bytes and
simply accessible struct, plus conversions between hardware ticks,
Unix time and NTP timestamps.
*/
package protocol

import (
	"math"
	"time"
)

// NanosecondsToUnix is the difference between NTP and Unix epoch in NS
const NanosecondsToUnix = int64(2208988800000000000)

// EpochOffset is the difference between NTP and Unix epoch in seconds
const EpochOffset = NanosecondsToUnix / int64(time.Second)

// Time is converting Unix time to sec and frac NTP format
func Time(t time.Time) (seconds uint32, fractions uint32) {
	nsec := t.UnixNano() + NanosecondsToUnix
	sec := nsec / time.Second.Nanoseconds()
	return uint32(sec), uint32((nsec - sec*time.Second.Nanoseconds()) << 32 / time.Second.Nanoseconds())
}

// Unix is converting NTP seconds and fractions into Unix time
func Unix(seconds, fractions uint32) time.Time {
	secs := int64(seconds) - EpochOffset
	nanos := (int64(fractions) * time.Second.Nanoseconds()) >> 32 // convert fractional to nanos
	return time.Unix(secs, nanos)
}

// SecondsToNTP converts whole Unix seconds into NTP era seconds
func SecondsToNTP(unix int64) uint32 {
	return uint32(unix + EpochOffset)
}

// TicksToFraction converts a sub-second tick count into an NTP fraction,
// round(ticks/ticksPerSecond * 2^32), saturating at the largest fraction
func TicksToFraction(ticks, ticksPerSecond uint32) uint32 {
	if ticksPerSecond == 0 {
		return 0
	}
	tps := uint64(ticksPerSecond)
	frac := (uint64(ticks)<<32 + tps/2) / tps
	if frac > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(frac)
}

// ToFixed16 converts seconds into 16.16 fixed point used by root delay and dispersion
func ToFixed16(seconds float64) uint32 {
	v := math.Round(seconds * (1 << 16))
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// FromFixed16 converts 16.16 fixed point into seconds
func FromFixed16(v uint32) float64 {
	return float64(v) / (1 << 16)
}
