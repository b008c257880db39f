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

package cmd

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/pulsetime/gpsntp/telemetry"
)

func init() {
	color.NoColor = true
}

func healthyReport() *telemetry.Report {
	return &telemetry.Report{
		State:         "VALID",
		GPSLocked:     true,
		Satellites:    9,
		FixQuality:    1,
		JitterNS:      120,
		FrequencyPPM:  -2.5,
		NMEASentences: 1000,
	}
}

func TestCheckAgainstThreshold(t *testing.T) {
	s, msg := checkAgainstThreshold("jitter", 10, 20, 30, "explained")
	require.Equal(t, OK, s)
	require.Equal(t, "jitter is 10, we expect it to be within 20", msg)

	s, msg = checkAgainstThreshold("jitter", 25, 20, 30, "explained")
	require.Equal(t, WARN, s)
	require.Equal(t, "jitter is 25, we expect it to be within 20. explained", msg)

	s, _ = checkAgainstThreshold("jitter", 31.5, 20, 30, "explained")
	require.Equal(t, FAIL, s)
}

func TestDiagnosersHealthy(t *testing.T) {
	r := healthyReport()
	for _, check := range diagnosers {
		s, msg := check(r)
		require.Equal(t, OK, s, msg)
	}
	require.Equal(t, OK, runDiagnosers(r))
}

func TestCheckValid(t *testing.T) {
	r := healthyReport()
	r.State = "ARMING"
	r.Remaining = 3
	s, msg := checkValid(r)
	require.Equal(t, WARN, s)
	require.Equal(t, "Clock is ARMING, 3 pulses till valid", msg)

	r.State = "INVALID"
	r.Remaining = 0
	r.Reason = "PPS timeout"
	s, msg = checkValid(r)
	require.Equal(t, CRITICAL, s)
	require.Equal(t, "Clock is INVALID (PPS timeout), not serving time", msg)
	require.Equal(t, CRITICAL, runDiagnosers(r))
}

func TestCheckGPS(t *testing.T) {
	r := healthyReport()
	r.Satellites = 4
	s, _ := checkGPS(r)
	require.Equal(t, WARN, s)

	r.GPSLocked = false
	s, _ = checkGPS(r)
	require.Equal(t, FAIL, s)
}

func TestCheckDispersion(t *testing.T) {
	r := healthyReport()
	r.DispersionS = 0.00006103515625
	s, msg := checkDispersion(r)
	require.Equal(t, WARN, s)
	require.Contains(t, msg, "PPS dispersion (us) is 61.03515625")
}

func TestCheckFrequency(t *testing.T) {
	r := healthyReport()
	r.FrequencyPPM = -150
	s, _ := checkFrequency(r)
	require.Equal(t, FAIL, s)
}

func TestCheckCounters(t *testing.T) {
	r := healthyReport()
	r.Timewarps = 1
	s, _ := checkTimewarps(r)
	require.Equal(t, WARN, s)

	r.Timeouts = 11
	s, _ = checkTimeouts(r)
	require.Equal(t, FAIL, s)
}

func TestCheckNMEAErrors(t *testing.T) {
	r := healthyReport()
	r.NMEAErrors = 50
	s, _ := checkNMEAErrors(r)
	require.Equal(t, WARN, s)

	r.NMEASentences = 0
	s, msg := checkNMEAErrors(r)
	require.Equal(t, FAIL, s)
	require.Equal(t, "No NMEA sentences received", msg)
}
