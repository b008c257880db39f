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
Package rtc seeds the clock from a battery backed real time clock and keeps
the RTC in step with the disciplined time.
*/
package rtc

//go:generate mockgen -source=rtc.go -destination=mock_rtc.go -package=rtc

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pulsetime/gpsntp/discipline"
)

// ErrUnsupported is returned on platforms without an RTC driver
var ErrUnsupported = errors.New("rtc devices are only supported on linux")

// DefaultRetryInterval is how long we wait after a failed RTC read
const DefaultRetryInterval = 10 * time.Second

// DefaultWriteInterval is how often the RTC is set from the disciplined clock
const DefaultWriteInterval = 11 * time.Minute

// Device is a real time clock with whole second resolution
type Device interface {
	ReadTime() (int64, error)
	WriteTime(seconds int64) error
}

// Clock is the part of the disciplined clock the RTC talks to
type Clock interface {
	Seed(seconds int64) bool
	HoldInvalid(reason string) bool
	Snapshot() discipline.Snapshot
}

// Seed reads the RTC and seeds the clock. It retries until a read succeeds,
// GPS takes over or ctx is done, keeping the clock invalid in between.
func Seed(ctx context.Context, dev Device, clock Clock, retry time.Duration) error {
	for {
		seconds, err := dev.ReadTime()
		if err == nil {
			if clock.Seed(seconds) {
				log.Infof("[rtc] seeded clock with %v", time.Unix(seconds, 0).UTC())
			} else {
				log.Infof("[rtc] GPS got there first, ignoring %v", time.Unix(seconds, 0).UTC())
			}
			return nil
		}
		if !clock.HoldInvalid(discipline.ReasonRTCBusError) {
			log.Warningf("[rtc] failed to read, GPS has taken over: %v", err)
			return nil
		}
		log.Warningf("[rtc] failed to read, retrying in %v: %v", retry, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

// WriteBack sets the RTC from the clock every interval while the clock is valid
func WriteBack(ctx context.Context, dev Device, clock Clock, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s := clock.Snapshot()
			if !s.Valid {
				log.Debug("[rtc] clock is not valid, skipping write")
				continue
			}
			if err := dev.WriteTime(s.UTCSeconds); err != nil {
				log.Warningf("[rtc] failed to write: %v", err)
				continue
			}
			log.Debugf("[rtc] set to %d", s.UTCSeconds)
		}
	}
}
