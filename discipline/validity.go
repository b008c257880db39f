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

// State is the trust state of the clock
type State int

// possible trust states
const (
	StateInvalid State = iota
	StateArming
	StateValid
)

var stateToString = map[State]string{
	StateInvalid: "INVALID",
	StateArming:  "ARMING",
	StateValid:   "VALID",
}

func (s State) String() string {
	if str, ok := stateToString[s]; ok {
		return str
	}
	return "UNKNOWN"
}

// reasons the clock stops being trusted
const (
	ReasonStartup     = "startup"
	ReasonTimeout     = "PPS timeout"
	ReasonFixLost     = "GPS fix lost"
	ReasonTimewarp    = "time warped backwards too many times"
	ReasonRTCBusError = "rtc bus error"
	ReasonExternal    = "external invalidation"
)

// ValidityState is a point-in-time view of the state machine
type ValidityState struct {
	State State
	// Remaining is the number of PPS edges left while Arming
	Remaining uint32
	// Since is the UTC second the clock became Valid
	Since int64
}

// ValidityStateMachine owns the trust state. Not safe for concurrent use.
type ValidityStateMachine struct {
	current           ValidityState
	validCount        uint32
	initialValidSince int64
	timeouts          uint32
	reason            string
}

func newValidityStateMachine() ValidityStateMachine {
	return ValidityStateMachine{reason: ReasonStartup}
}

// Current returns the current state
func (v *ValidityStateMachine) Current() ValidityState {
	return v.current
}

// IsValid is true only in StateValid
func (v *ValidityStateMachine) IsValid() bool {
	return v.current.State == StateValid
}

// Arm starts the countdown of n edges
func (v *ValidityStateMachine) Arm(n uint32) {
	v.current = ValidityState{State: StateArming, Remaining: n}
}

// Pulse advances the arming countdown. It returns true when the clock became Valid.
func (v *ValidityStateMachine) Pulse(now int64) bool {
	if v.current.State != StateArming {
		return false
	}
	if v.current.Remaining > 0 {
		v.current.Remaining--
	}
	if v.current.Remaining > 0 {
		return false
	}
	v.current = ValidityState{State: StateValid, Since: now}
	if v.validCount == 0 {
		v.initialValidSince = now
	}
	v.validCount++
	return true
}

// Invalidate drops trust. It returns false if the clock was already Invalid,
// in which case the original reason is kept.
func (v *ValidityStateMachine) Invalidate(reason string) bool {
	if v.current.State == StateInvalid {
		return false
	}
	v.current = ValidityState{State: StateInvalid}
	v.reason = reason
	return true
}

// Timeout counts a watchdog expiry once the clock has been valid at least once
func (v *ValidityStateMachine) Timeout() {
	if v.validCount > 0 {
		v.timeouts++
	}
}
