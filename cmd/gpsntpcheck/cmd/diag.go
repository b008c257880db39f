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
	"fmt"
	"math"
	"os"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/constraints"
	"golang.org/x/term"

	"github.com/pulsetime/gpsntp/telemetry"
)

type status int

// possible check results
const (
	OK status = iota
	WARN
	FAIL
	CRITICAL
)

// diagnoser is function that does checks on a Report
type diagnoser func(r *telemetry.Report) (status, string)

var okString = color.GreenString("[ OK ]")
var warnString = color.YellowString("[WARN]")
var failString = color.RedString("[FAIL]")

var statusToColor = []string{okString, warnString, failString}

func fmtThreshold(warnThreshold any) string {
	return color.BlueString("%v", warnThreshold)
}

// generic function to check value against some thresholds
func checkAgainstThreshold[T constraints.Ordered](name string, value, warnThreshold, failThreshold T, explanation string) (status, string) {
	msgTemplate := "%s is %s, we expect it to be within %s%s"
	thresholdStr := fmtThreshold(warnThreshold)

	if value > failThreshold {
		return FAIL, fmt.Sprintf(
			msgTemplate,
			name,
			color.RedString("%v", value),
			thresholdStr,
			". "+explanation,
		)
	}
	if value > warnThreshold {
		return WARN, fmt.Sprintf(
			msgTemplate,
			name,
			color.YellowString("%v", value),
			thresholdStr,
			". "+explanation,
		)
	}
	return OK, fmt.Sprintf(
		msgTemplate,
		name,
		color.GreenString("%v", value),
		thresholdStr,
		"",
	)
}

func checkValid(r *telemetry.Report) (status, string) {
	switch {
	case r.Valid():
		return OK, fmt.Sprintf("Clock is %s, serving time", color.GreenString(r.State))
	case r.Remaining > 0:
		return WARN, fmt.Sprintf("Clock is %s, %d pulses till valid", color.YellowString(r.State), r.Remaining)
	default:
		return CRITICAL, fmt.Sprintf("Clock is %s (%s), not serving time", color.RedString(r.State), r.Reason)
	}
}

func checkGPS(r *telemetry.Report) (status, string) {
	if !r.GPSLocked {
		return FAIL, fmt.Sprintf("GPS has no lock, %d satellites in view with fix quality %d", r.Satellites, r.FixQuality)
	}
	// a 3D fix needs 4 satellites, more gives some headroom
	if r.Satellites < 6 {
		return WARN, fmt.Sprintf("GPS is locked to only %s satellites", color.YellowString("%d", r.Satellites))
	}
	return OK, fmt.Sprintf("GPS is locked to %s satellites", color.GreenString("%d", r.Satellites))
}

func checkJitter(r *telemetry.Report) (status, string) {
	const warnThreshold = 1000.0
	const failThreshold = 100000.0
	return checkAgainstThreshold(
		"PPS jitter (ns)",
		r.JitterNS,
		warnThreshold,
		failThreshold,
		"Jitter is the largest deviation of a PPS interval from the mean.",
	)
}

func checkDispersion(r *telemetry.Report) (status, string) {
	const warnThreshold = 10.0
	const failThreshold = 1000.0
	return checkAgainstThreshold(
		"PPS dispersion (us)",
		r.DispersionS*1e6,
		warnThreshold,
		failThreshold,
		"Dispersion is the worst PPS interval deviation seen since the clock became valid.",
	)
}

func checkFrequency(r *telemetry.Report) (status, string) {
	const warnThreshold = 10.0
	const failThreshold = 100.0
	return checkAgainstThreshold(
		"Oscillator frequency error (ppm)",
		math.Abs(r.FrequencyPPM),
		warnThreshold,
		failThreshold,
		"Frequency error is how far the tick counter runs from nominal rate.",
	)
}

func checkTimewarps(r *telemetry.Report) (status, string) {
	const warnThreshold uint64 = 0
	const failThreshold uint64 = 10
	return checkAgainstThreshold(
		"Number of backward GPS time jumps",
		r.Timewarps,
		warnThreshold,
		failThreshold,
		"GPS time going backwards points to a receiver or antenna problem.",
	)
}

func checkTimeouts(r *telemetry.Report) (status, string) {
	const warnThreshold uint32 = 0
	const failThreshold uint32 = 10
	return checkAgainstThreshold(
		"Number of PPS timeouts",
		r.Timeouts,
		warnThreshold,
		failThreshold,
		"PPS timeouts mean pulses went missing.",
	)
}

func checkNMEAErrors(r *telemetry.Report) (status, string) {
	if r.NMEASentences == 0 {
		return FAIL, "No NMEA sentences received"
	}
	errorsPercent := float64(r.NMEAErrors) * 100 / float64(r.NMEASentences)
	const warnThreshold = 1.0
	const failThreshold = 10.0
	return checkAgainstThreshold(
		"NMEA error rate (%)",
		errorsPercent,
		warnThreshold,
		failThreshold,
		"Errors are sentences with bad checksums or garbage on the serial line.",
	)
}

var diagnosers = []diagnoser{
	checkValid,
	checkGPS,
	checkJitter,
	checkDispersion,
	checkFrequency,
	checkTimewarps,
	checkTimeouts,
	checkNMEAErrors,
}

// runDiagnosers prints every check and returns the worst status seen
func runDiagnosers(r *telemetry.Report) status {
	worst := OK
	for _, check := range diagnosers {
		s, msg := check(r)
		if s > worst {
			worst = s
		}
		if s == CRITICAL {
			fmt.Printf("%s %s\n", failString, msg)
			return s
		}
		fmt.Printf("%s %s\n", statusToColor[s], msg)
	}
	return worst
}

func init() {
	RootCmd.AddCommand(diagCmd)
	diagCmd.Flags().StringVarP(&monitoring, "monitoring", "M", defaultMonitoring, monitoringFlagDesc)
}

const desc = "Perform basic diagnosis of gpsntpd, report in human-readable form."

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: desc,
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			color.NoColor = true
		}

		r, err := fetchReport(monitoring)
		if err != nil {
			log.Fatal(err)
		}
		if runDiagnosers(r) >= FAIL {
			os.Exit(1)
		}
	},
}
