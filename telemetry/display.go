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
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const displayTimeFormat = "2006/01/02 15:04:05"

// Display logs a one line summary per report, like a front panel would show
type Display struct{}

// Publish logs the report
func (Display) Publish(r Report) {
	log.Info("[display] " + Line(r))
}

// Line renders the report
func Line(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s sats:%d fix:%d reqs:%d rsps:%d ",
		time.Unix(r.Seconds, 0).UTC().Format(displayTimeFormat),
		r.Satellites, r.FixQuality, r.Requests, r.Responses)
	switch {
	case r.Valid():
		b.WriteString("up " + uptime(r.Seconds-r.ValidSince))
	case r.GPSLocked:
		fmt.Fprintf(&b, "%d till VALID", r.Remaining)
	default:
		b.WriteString("GPS NOT VALID")
	}
	return b.String()
}

func uptime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	seconds -= days * 86400
	hours := seconds / 3600
	seconds -= hours * 3600
	minutes := seconds / 60
	seconds -= minutes * 60
	return fmt.Sprintf("%dd %02dh %02dm %02ds", days, hours, minutes, seconds)
}
