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
)

// TimerWatchdog is a Watchdog backed by time.AfterFunc
type TimerWatchdog struct {
	period time.Duration
	timer  *time.Timer
}

// NewTimerWatchdog returns an armed TimerWatchdog
func NewTimerWatchdog(period time.Duration, fire func()) Watchdog {
	return &TimerWatchdog{
		period: period,
		timer:  time.AfterFunc(period, fire),
	}
}

// Reset rearms the timer
func (w *TimerWatchdog) Reset() {
	w.timer.Reset(w.period)
}

// Stop disarms the timer
func (w *TimerWatchdog) Stop() {
	w.timer.Stop()
}
