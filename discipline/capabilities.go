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

//go:generate mockgen -source=capabilities.go -destination=mock_capabilities.go -package=discipline

import (
	"context"
	"time"
)

// TickSource is a free running hardware counter
type TickSource interface {
	// Ticks returns the current counter value. It is allowed to wrap.
	Ticks() uint32
	// TicksPerSecond is the nominal counter rate
	TicksPerSecond() uint32
}

// Watchdog is a single-shot timer which fires unless it's rearmed in time
type Watchdog interface {
	// Reset rearms the timer for another full period
	Reset()
	// Stop disarms the timer
	Stop()
}

// WatchdogFunc creates a Watchdog which calls fire after period expires
type WatchdogFunc func(period time.Duration, fire func()) Watchdog

// EdgeSource delivers PPS edges as tick values of the TickSource it is paired with
type EdgeSource interface {
	// Run blocks delivering edges until ctx is cancelled or the source fails
	Run(ctx context.Context, onEdge func(tick uint32)) error
}

// SnapshotSource is anything which can produce a ClockSnapshot
type SnapshotSource interface {
	Snapshot() Snapshot
}
