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
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pulsetime/gpsntp/telemetry"
)

func init() {
	RootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&monitoring, "monitoring", "M", defaultMonitoring, monitoringFlagDesc)
}

func unixOrNever(seconds int64) string {
	if seconds == 0 {
		return "never"
	}
	return time.Unix(seconds, 0).UTC().Format(time.RFC3339)
}

func printStatus(w io.Writer, r *telemetry.Report) error {
	fmt.Fprintln(w, telemetry.Line(*r))
	table := tablewriter.NewWriter(w)
	table.Header("metric", "value")
	rows := [][]string{
		{"state", r.State},
		{"reason", r.Reason},
		{"arming remaining", fmt.Sprintf("%d", r.Remaining)},
		{"valid since", unixOrNever(r.ValidSince)},
		{"first valid", unixOrNever(r.InitialValidSince)},
		{"valid count", fmt.Sprintf("%d", r.ValidCount)},
		{"pps timeouts", fmt.Sprintf("%d", r.Timeouts)},
		{"gps locked", fmt.Sprintf("%v", r.GPSLocked)},
		{"satellites", fmt.Sprintf("%d", r.Satellites)},
		{"fix quality", fmt.Sprintf("%d", r.FixQuality)},
		{"fixes", fmt.Sprintf("%d", r.Fixes)},
		{"late fixes", fmt.Sprintf("%d", r.LateFixes)},
		{"timewarps", fmt.Sprintf("%d", r.Timewarps)},
		{"jitter", fmt.Sprintf("%.0fns", r.JitterNS)},
		{"dispersion", fmt.Sprintf("%.9fs", r.DispersionS)},
		{"frequency", fmt.Sprintf("%.3fppm", r.FrequencyPPM)},
		{"precision", fmt.Sprintf("2^%d s", r.Precision)},
		{"root delay", fmt.Sprintf("%.9fs", r.RootDelayS)},
		{"ntp requests", fmt.Sprintf("%d", r.Requests)},
		{"ntp responses", fmt.Sprintf("%d", r.Responses)},
		{"nmea sentences", fmt.Sprintf("%d", r.NMEASentences)},
		{"nmea errors", fmt.Sprintf("%d", r.NMEAErrors)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the clock and GPS state reported by gpsntpd",
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()

		r, err := fetchReport(monitoring)
		if err != nil {
			log.Fatal(err)
		}
		if err := printStatus(os.Stdout, r); err != nil {
			log.Fatal(err)
		}
	},
}
