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

package server

import (
	"github.com/pulsetime/gpsntp/discipline"
)

// Stats is a metric collection interface
type Stats interface {
	// IncInvalidFormat atomically add 1 to the counter
	IncInvalidFormat()
	// IncRequests atomically add 1 to the counter
	IncRequests()
	// IncResponses atomically add 1 to the counter
	IncResponses()
	// IncListeners atomically add 1 to the counter
	IncListeners()
	// IncWorkers atomically add 1 to the counter
	IncWorkers()
	// IncReadError atomically add 1 to the counter
	IncReadError()
	// IncUnsynced atomically add 1 to the counter
	IncUnsynced()
	// IncRateLimited atomically add 1 to the counter
	IncRateLimited()

	// DecListeners atomically removes 1 from the counter
	DecListeners()
	// DecWorkers atomically removes 1 from the counter
	DecWorkers()
}

// Checker is an internal healthcheck interface
type Checker interface {
	// Check is a method which performs basic validations that responder is alive
	Check() error

	// IncListeners atomically add 1 to the counter
	IncListeners()
	// IncWorkers atomically add 1 to the counter
	IncWorkers()

	// DecListeners atomically removes 1 from the counter
	DecListeners()
	// DecWorkers atomically removes 1 from the counter
	DecWorkers()
}

// Clock is the reference the server stamps replies with
type Clock interface {
	// Snapshot reads the clock consistently
	Snapshot() discipline.Snapshot
	// Dispersion is the worst PPS interval deviation in seconds
	Dispersion() float64
}
