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
Package stats implements statistics collection and reporting.
It is used by server to report internal statistics, such as number of
requests and responses.
*/
package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// JSONStats implements Stat interface
// This implementation reports JSON metrics via http interface
// This is a passive implementation, mount it on a router
type JSONStats struct {
	// keep these aligned to 64-bit for sync/atomic
	invalidFormat int64
	requests      int64
	responses     int64
	listeners     int64
	workers       int64
	readError     int64
	unsynced      int64
	rateLimited   int64

	prefix string
}

// SetPrefix sets custom metric prefix, call it before serving
func (j *JSONStats) SetPrefix(prefix string) {
	j.prefix = prefix
}

// Snapshot converts counters to a map
func (j *JSONStats) Snapshot() (export map[string]int64) {
	export = make(map[string]int64)

	export[fmt.Sprintf("%sinvalidformat", j.prefix)] = atomic.LoadInt64(&j.invalidFormat)
	export[fmt.Sprintf("%srequests", j.prefix)] = atomic.LoadInt64(&j.requests)
	export[fmt.Sprintf("%sresponses", j.prefix)] = atomic.LoadInt64(&j.responses)
	export[fmt.Sprintf("%slisteners", j.prefix)] = atomic.LoadInt64(&j.listeners)
	export[fmt.Sprintf("%sworkers", j.prefix)] = atomic.LoadInt64(&j.workers)
	export[fmt.Sprintf("%sreadError", j.prefix)] = atomic.LoadInt64(&j.readError)
	export[fmt.Sprintf("%sunsynced", j.prefix)] = atomic.LoadInt64(&j.unsynced)
	export[fmt.Sprintf("%sratelimited", j.prefix)] = atomic.LoadInt64(&j.rateLimited)

	return export
}

// Requests returns the number of counted requests
func (j *JSONStats) Requests() int64 {
	return atomic.LoadInt64(&j.requests)
}

// Responses returns the number of sent responses
func (j *JSONStats) Responses() int64 {
	return atomic.LoadInt64(&j.responses)
}

// ServeHTTP is a handler used for all http monitoring requests
func (j *JSONStats) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(j.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("[stats] failed to reply: %v", err)
	}
}

// IncInvalidFormat atomically add 1 to the counter
func (j *JSONStats) IncInvalidFormat() {
	atomic.AddInt64(&j.invalidFormat, 1)
}

// IncRequests atomically add 1 to the counter
func (j *JSONStats) IncRequests() {
	atomic.AddInt64(&j.requests, 1)
}

// IncResponses atomically add 1 to the counter
func (j *JSONStats) IncResponses() {
	atomic.AddInt64(&j.responses, 1)
}

// IncListeners atomically add 1 to the counter
func (j *JSONStats) IncListeners() {
	atomic.AddInt64(&j.listeners, 1)
}

// IncWorkers atomically add 1 to the counter
func (j *JSONStats) IncWorkers() {
	atomic.AddInt64(&j.workers, 1)
}

// IncReadError atomically add 1 to the counter
func (j *JSONStats) IncReadError() {
	atomic.AddInt64(&j.readError, 1)
}

// IncUnsynced atomically add 1 to the counter
func (j *JSONStats) IncUnsynced() {
	atomic.AddInt64(&j.unsynced, 1)
}

// IncRateLimited atomically add 1 to the counter
func (j *JSONStats) IncRateLimited() {
	atomic.AddInt64(&j.rateLimited, 1)
}

// DecListeners atomically removes 1 from the counter
func (j *JSONStats) DecListeners() {
	atomic.AddInt64(&j.listeners, -1)
}

// DecWorkers atomically removes 1 from the counter
func (j *JSONStats) DecWorkers() {
	atomic.AddInt64(&j.workers, -1)
}
