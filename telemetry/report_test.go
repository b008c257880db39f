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

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsetime/gpsntp/discipline"
)

func validStatus() discipline.Status {
	return discipline.Status{
		Seconds:           1700000100,
		State:             discipline.ValidityState{State: discipline.StateValid, Since: 1700000000},
		Reason:            discipline.ReasonStartup,
		ValidCount:        1,
		InitialValidSince: 1700000000,
		GPSLocked:         true,
		Satellites:        9,
		FixQuality:        1,
		TicksPerSecond:    1000000,
		Jitter:            4,
		Dispersion:        0.000003,
		FrequencyPPM:      1.25,
		IntervalStddev:    1.5,
	}
}

func TestNewReport(t *testing.T) {
	r := NewReport(validStatus())
	require.Equal(t, "VALID", r.State)
	require.True(t, r.Valid())
	require.Equal(t, int64(1700000000), r.ValidSince)
	require.InDelta(t, 4000.0, r.JitterNS, 1e-9)
	require.InDelta(t, 1500.0, r.IntervalStddevNS, 1e-9)
	require.Equal(t, 0.000003, r.DispersionS)
	require.Equal(t, uint8(9), r.Satellites)
}

func TestNewReportZeroTickRate(t *testing.T) {
	s := validStatus()
	s.TicksPerSecond = 0
	r := NewReport(s)
	require.Equal(t, 0.0, r.JitterNS)
}

func TestReportMetrics(t *testing.T) {
	r := NewReport(validStatus())
	r.Requests = 10
	r.Precision = -20
	r.RootDelayS = 0.5
	m := r.Metrics()
	require.Equal(t, 1.0, m["clock.valid"])
	require.Equal(t, 1.0, m["gps.locked"])
	require.Equal(t, 10.0, m["ntp.requests"])
	require.Equal(t, -20.0, m["clock.precision"])
	require.Equal(t, 0.5, m["clock.root_delay_s"])
	require.Equal(t, 9.0, m["gps.satellites"])

	r.State = discipline.StateArming.String()
	r.GPSLocked = false
	require.Equal(t, 0.0, r.Metrics()["clock.valid"])
	require.Equal(t, 0.0, r.Metrics()["gps.locked"])
}

type recorder struct {
	reports []Report
}

func (r *recorder) Publish(rep Report) {
	r.reports = append(r.reports, rep)
}

func TestPublishers(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	r := Report{Seconds: 42}
	Publishers{a, b}.Publish(r)
	require.Equal(t, []Report{r}, a.reports)
	require.Equal(t, []Report{r}, b.reports)
}
