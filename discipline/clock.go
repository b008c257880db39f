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
Package discipline implements a clock disciplined by a GPS receiver.

PPS edges drive a whole-second counter and interval statistics, NMEA fixes
correct the counter and gate trust, and a watchdog drops trust when edges stop.
All state lives in a single Clock guarded by one mutex which is never held
across I/O, so the edge path and the readers never observe torn updates.
*/
package discipline

import (
	"errors"
	"sync"
	"time"
)

var errZeroTickRate = errors.New("tick source reports zero ticks per second")

// eventsBuffer is how many transitions we keep for a slow consumer
const eventsBuffer = 32

// Event describes a validity transition
type Event struct {
	From    State
	To      State
	Reason  string
	Seconds int64
}

// Clock is the disciplined clock
type Clock struct {
	mu sync.Mutex

	cfg      Config
	ticks    TickSource
	watchdog Watchdog
	events   chan Event

	seconds  int64
	tracker  *PulseTracker
	// lastEdge is the tick of the newest edge, edgeSeen is cleared by a timeout
	lastEdge uint32
	edgeSeen bool
	validity ValidityStateMachine
	ingestor FixIngestor
}

// New creates a Clock driven by ticks and arms its watchdog.
// newWatchdog may be nil, NewTimerWatchdog is used then.
func New(cfg Config, ticks TickSource, newWatchdog WatchdogFunc) (*Clock, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ticks.TicksPerSecond() == 0 {
		return nil, errZeroTickRate
	}
	if newWatchdog == nil {
		newWatchdog = NewTimerWatchdog
	}
	c := &Clock{
		cfg:      cfg,
		ticks:    ticks,
		events:   make(chan Event, eventsBuffer),
		tracker:  NewPulseTracker(ticks.TicksPerSecond()),
		validity: newValidityStateMachine(),
	}
	c.mu.Lock()
	c.watchdog = newWatchdog(cfg.WatchdogPeriod, c.onWatchdog)
	c.mu.Unlock()
	return c, nil
}

// Events returns validity transitions. Transitions are dropped if nobody reads them.
func (c *Clock) Events() <-chan Event {
	return c.events
}

// Stop disarms the watchdog
func (c *Clock) Stop() {
	c.mu.Lock()
	wd := c.watchdog
	c.mu.Unlock()
	wd.Stop()
}

// OnEdge is called for every PPS edge with the tick value captured at the edge
func (c *Clock) OnEdge(tick uint32) {
	c.watchdog.Reset()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastEdge = tick
	c.edgeSeen = true
	c.tracker.Edge(tick)
	c.seconds++
	if c.validity.Pulse(c.seconds) {
		// new session, jitter only covers edges we serve with
		c.tracker.ResetStats()
		c.emit(StateArming, StateValid, "")
	}
}

// Invalidate drops trust for an external reason
func (c *Clock) Invalidate(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked(reason)
}

// HoldInvalid keeps the clock invalid for reason while GPS has no lock.
// Once GPS has taken over it leaves the clock alone and reports false.
func (c *Clock) HoldInvalid(reason string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ingestor.locked || c.validity.current.State != StateInvalid {
		return false
	}
	c.invalidateLocked(reason)
	return true
}

// Seed sets the whole seconds from a fallback source such as an RTC.
// It only applies while GPS is not locked and reports whether it did.
func (c *Clock) Seed(seconds int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ingestor.locked || c.validity.current.State != StateInvalid {
		return false
	}
	c.seconds = seconds
	return true
}

// IsValid tells if time can be served
func (c *Clock) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validity.IsValid()
}

// State returns the current validity state
func (c *Clock) State() ValidityState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validity.Current()
}

// Jitter returns the interval spread of the current session in ticks
func (c *Clock) Jitter() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Jitter()
}

// Dispersion returns the worst interval deviation of the current session in seconds
func (c *Clock) Dispersion() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Dispersion()
}

// TicksPerSecond is the nominal rate of the tick source
func (c *Clock) TicksPerSecond() uint32 {
	return c.tracker.ticksPerSecond
}

func (c *Clock) onWatchdog() {
	c.mu.Lock()
	if c.edgeSeen && !c.edgeOverdueLocked() {
		// an edge raced the timer and already rearmed it
		c.mu.Unlock()
		return
	}
	c.edgeSeen = false
	c.validity.Timeout()
	c.invalidateLocked(ReasonTimeout)
	wd := c.watchdog
	c.mu.Unlock()
	// keep watching a dead PPS line
	wd.Reset()
}

// edgeOverdueLocked reports whether a full watchdog period passed since the last edge
func (c *Clock) edgeOverdueLocked() bool {
	elapsed := c.ticks.Ticks() - c.lastEdge
	return ticksToDuration(elapsed, c.tracker.ticksPerSecond) >= c.cfg.WatchdogPeriod
}

func (c *Clock) armLocked() {
	from := c.validity.current.State
	c.tracker.Rebase()
	c.validity.Arm(c.cfg.ArmingCount)
	c.emit(from, StateArming, "")
}

func (c *Clock) invalidateLocked(reason string) {
	from := c.validity.current.State
	c.ingestor.locked = false
	c.ingestor.timewarps = 0
	c.tracker.Rebase()
	if c.validity.Invalidate(reason) {
		c.emit(from, StateInvalid, reason)
	}
}

// emit never blocks, the caller holds the lock
func (c *Clock) emit(from, to State, reason string) {
	select {
	case c.events <- Event{From: from, To: to, Reason: reason, Seconds: c.seconds}:
	default:
	}
}

// ticksToDuration converts a tick count into time
func ticksToDuration(ticks, ticksPerSecond uint32) time.Duration {
	return time.Duration(uint64(ticks) * uint64(time.Second) / uint64(ticksPerSecond))
}
