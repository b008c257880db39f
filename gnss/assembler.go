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
Package gnss reads NMEA 0183 sentences from a GPS receiver and turns them into fixes.

RMC sentences carry date, time and receiver status, GGA sentences carry satellite
count and fix quality. Every RMC produces one FixRecord using the latest GGA.
*/
package gnss

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/pulsetime/gpsntp/discipline"
)

// minYear is the first year we believe, receivers without an almanac report their build epoch
const minYear = 2018

// two digit years from this value on belong to the previous century
const centuryPivot = 80

// Counters of processed sentences
type Counters struct {
	Sentences uint64
	RMC       uint64
	GGA       uint64
	Ignored   uint64
	Errors    uint64
}

// Assembler combines RMC and GGA sentences into fixes
type Assembler struct {
	satellites uint8
	fixQuality uint8

	sentences atomic.Uint64
	rmc       atomic.Uint64
	gga       atomic.Uint64
	ignored   atomic.Uint64
	errors    atomic.Uint64
}

// Process consumes a single line. It returns a fix and true when the line was an RMC.
func (a *Assembler) Process(line string) (discipline.FixRecord, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return discipline.FixRecord{}, false, nil
	}
	a.sentences.Add(1)
	s, err := nmea.Parse(line)
	if err != nil {
		a.errors.Add(1)
		return discipline.FixRecord{}, false, fmt.Errorf("parsing %q: %w", line, err)
	}
	switch m := s.(type) {
	case nmea.GGA:
		a.gga.Add(1)
		a.satellites = clampUint8(m.NumSatellites)
		q, err := strconv.ParseUint(m.FixQuality, 10, 8)
		if err != nil {
			a.errors.Add(1)
			a.fixQuality = 0
			return discipline.FixRecord{}, false, fmt.Errorf("fix quality %q: %w", m.FixQuality, err)
		}
		a.fixQuality = uint8(q)
		return discipline.FixRecord{}, false, nil
	case nmea.RMC:
		a.rmc.Add(1)
		return a.fixFromRMC(m), true, nil
	default:
		a.ignored.Add(1)
		return discipline.FixRecord{}, false, nil
	}
}

// fixFromRMC builds a fix. A receiver reporting void status yields a usable
// sentence with no fix quality, so the clock treats it as a lost fix.
func (a *Assembler) fixFromRMC(m nmea.RMC) discipline.FixRecord {
	fix := discipline.FixRecord{
		Satellites: a.satellites,
		FixQuality: a.fixQuality,
	}
	if m.Validity != nmea.ValidRMC {
		fix.FixQuality = 0
	}
	if !m.Date.Valid || !m.Time.Valid {
		return fix
	}
	year := 2000 + m.Date.YY
	if m.Date.YY >= centuryPivot {
		year = 1900 + m.Date.YY
	}
	if year < minYear {
		return fix
	}
	t := time.Date(year, time.Month(m.Date.MM), m.Date.DD, m.Time.Hour, m.Time.Minute, m.Time.Second, 0, time.UTC)
	fix.UTCSeconds = t.Unix()
	fix.SentenceValid = true
	return fix
}

// Counters returns a copy of the counters
func (a *Assembler) Counters() Counters {
	return Counters{
		Sentences: a.sentences.Load(),
		RMC:       a.rmc.Load(),
		GGA:       a.gga.Load(),
		Ignored:   a.ignored.Load(),
		Errors:    a.errors.Load(),
	}
}

func clampUint8(v int64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
