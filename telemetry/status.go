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
	"encoding/json"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"
)

// StatusHolder keeps the latest report and serves it as JSON
type StatusHolder struct {
	mu     sync.RWMutex
	report Report
}

// Publish stores the report
func (s *StatusHolder) Publish(r Report) {
	s.mu.Lock()
	s.report = r
	s.mu.Unlock()
}

// Report returns the latest report
func (s *StatusHolder) Report() Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// ServeHTTP responds with the latest report
func (s *StatusHolder) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(s.Report())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(js); err != nil {
		log.Errorf("[status] failed to reply: %v", err)
	}
}
