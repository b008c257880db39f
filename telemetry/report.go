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
Package telemetry publishes periodic reports of the clock and the NTP server:
a log line mimicking a front panel display, a JSON status page and Prometheus metrics.
*/
package telemetry

import (
	"github.com/pulsetime/gpsntp/discipline"
)

// Report is a point-in-time view of the whole daemon
type Report struct {
	Seconds           int64   `json:"seconds"`
	State             string  `json:"state"`
	Reason            string  `json:"reason"`
	Remaining         uint32  `json:"remaining"`
	ValidSince        int64   `json:"valid_since"`
	InitialValidSince int64   `json:"initial_valid_since"`
	ValidCount        uint32  `json:"valid_count"`
	Timeouts          uint32  `json:"timeouts"`
	GPSLocked         bool    `json:"gps_locked"`
	Satellites        uint8   `json:"satellites"`
	FixQuality        uint8   `json:"fix_quality"`
	Fixes             uint64  `json:"fixes"`
	Ignored           uint64  `json:"ignored"`
	LateFixes         uint64  `json:"late_fixes"`
	Corrections       uint64  `json:"corrections"`
	Timewarps         uint64  `json:"timewarps"`
	JitterNS          float64 `json:"jitter_ns"`
	DispersionS       float64 `json:"dispersion_s"`
	FrequencyPPM      float64 `json:"frequency_ppm"`
	IntervalStddevNS  float64 `json:"interval_stddev_ns"`
	Precision         int8    `json:"precision"`
	RootDelayS        float64 `json:"root_delay_s"`
	Requests          int64   `json:"requests"`
	Responses         int64   `json:"responses"`
	NMEASentences     uint64  `json:"nmea_sentences"`
	NMEAErrors        uint64  `json:"nmea_errors"`
}

// NewReport fills a Report from the clock status
func NewReport(s discipline.Status) Report {
	nsPerTick := 0.0
	if s.TicksPerSecond != 0 {
		nsPerTick = 1e9 / float64(s.TicksPerSecond)
	}
	return Report{
		Seconds:           s.Seconds,
		State:             s.State.State.String(),
		Reason:            s.Reason,
		Remaining:         s.State.Remaining,
		ValidSince:        s.State.Since,
		InitialValidSince: s.InitialValidSince,
		ValidCount:        s.ValidCount,
		Timeouts:          s.Timeouts,
		GPSLocked:         s.GPSLocked,
		Satellites:        s.Satellites,
		FixQuality:        s.FixQuality,
		Fixes:             s.Fixes,
		Ignored:           s.Ignored,
		LateFixes:         s.LateFixes,
		Corrections:       s.Corrections,
		Timewarps:         s.Timewarps,
		JitterNS:          float64(s.Jitter) * nsPerTick,
		DispersionS:       s.Dispersion,
		FrequencyPPM:      s.FrequencyPPM,
		IntervalStddevNS:  s.IntervalStddev * nsPerTick,
	}
}

// Valid tells if the clock was serving time
func (r Report) Valid() bool {
	return r.State == discipline.StateValid.String()
}

// Metrics flattens the numeric fields of the report
func (r Report) Metrics() map[string]float64 {
	valid, locked := 0.0, 0.0
	if r.Valid() {
		valid = 1
	}
	if r.GPSLocked {
		locked = 1
	}
	return map[string]float64{
		"clock.valid":              valid,
		"clock.seconds":            float64(r.Seconds),
		"clock.arming_remaining":   float64(r.Remaining),
		"clock.valid_since":        float64(r.ValidSince),
		"clock.valid_count":        float64(r.ValidCount),
		"clock.timeouts":           float64(r.Timeouts),
		"clock.jitter_ns":          r.JitterNS,
		"clock.dispersion_s":       r.DispersionS,
		"clock.frequency_ppm":      r.FrequencyPPM,
		"clock.interval_stddev_ns": r.IntervalStddevNS,
		"clock.precision":          float64(r.Precision),
		"clock.root_delay_s":       r.RootDelayS,
		"gps.locked":               locked,
		"gps.satellites":           float64(r.Satellites),
		"gps.fix_quality":          float64(r.FixQuality),
		"gps.fixes":                float64(r.Fixes),
		"gps.ignored":              float64(r.Ignored),
		"gps.late_fixes":           float64(r.LateFixes),
		"gps.corrections":          float64(r.Corrections),
		"gps.timewarps":            float64(r.Timewarps),
		"gps.nmea_sentences":       float64(r.NMEASentences),
		"gps.nmea_errors":          float64(r.NMEAErrors),
		"ntp.requests":             float64(r.Requests),
		"ntp.responses":            float64(r.Responses),
	}
}

// Publisher receives reports. Publish must not block.
type Publisher interface {
	Publish(r Report)
}

// Publishers fans a report out to all of its members
type Publishers []Publisher

// Publish sends the report to every publisher
func (p Publishers) Publish(r Report) {
	for _, pub := range p {
		pub.Publish(r)
	}
}
