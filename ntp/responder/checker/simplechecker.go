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
Package checker implements checking mechanism of server aliveness and clock health.
SimpleChecker is used by server to determine if work can be continued,
ClockChecker reports whether the disciplined clock looks healthy.
*/
package checker

import (
	"errors"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

var (
	errSimpleCheckerWrongAmountListeners = errors.New("wrong amount of listeners is up")
	errSimpleCheckerWrongAmountWorkers   = errors.New("wrong amount of workers is up")
)

// SimpleChecker is an implementation of checker containing basic health info such as
// amount of workers and listeners
type SimpleChecker struct {
	// ExpectedListeners is number of listeners we expect to run
	ExpectedListeners int64
	realListeners     atomic.Int64

	// ExpectedWorkers is number of workers we expect to run
	ExpectedWorkers int64
	realWorkers     atomic.Int64
}

// IncListeners thread-safely increases number of listeners to monitor
func (s *SimpleChecker) IncListeners() {
	s.realListeners.Add(1)
}

// DecListeners thread-safely decreases number of listeners to monitor
func (s *SimpleChecker) DecListeners() {
	s.realListeners.Add(-1)
}

// IncWorkers thread-safely increases number of workers to monitor
func (s *SimpleChecker) IncWorkers() {
	s.realWorkers.Add(1)
}

// DecWorkers thread-safely decreases number of workers to monitor
func (s *SimpleChecker) DecWorkers() {
	s.realWorkers.Add(-1)
}

// Check is a method which performs basic validations that responder is alive
func (s *SimpleChecker) Check() error {
	if err := s.checkListeners(); err != nil {
		return err
	}
	return s.checkWorkers()
}

// checkListeners if all ExpectedListeners are alive
func (s *SimpleChecker) checkListeners() error {
	log.Debug("[checker] checking listeners")
	if real := s.realListeners.Load(); real != s.ExpectedListeners {
		return fmt.Errorf("%w: expected %d, running %d", errSimpleCheckerWrongAmountListeners, s.ExpectedListeners, real)
	}
	return nil
}

// checkWorkers if all ExpectedWorkers are alive
func (s *SimpleChecker) checkWorkers() error {
	log.Debug("[checker] checking workers")
	if real := s.realWorkers.Load(); real != s.ExpectedWorkers {
		return fmt.Errorf("%w: expected %d, running %d", errSimpleCheckerWrongAmountWorkers, s.ExpectedWorkers, real)
	}
	return nil
}
