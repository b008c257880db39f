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
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// metricPrefix namespaces all exported gauges
const metricPrefix = "gpsntp_"

// PromExporter exposes reports as Prometheus gauges
type PromExporter struct {
	registry *prometheus.Registry

	mu     sync.Mutex
	gauges map[string]prometheus.Gauge
}

// NewPromExporter creates a new instance of PromExporter
func NewPromExporter() *PromExporter {
	return &PromExporter{
		registry: prometheus.NewRegistry(),
		gauges:   map[string]prometheus.Gauge{},
	}
}

// Publish updates gauges from the report
func (e *PromExporter) Publish(r Report) {
	for k, v := range r.Metrics() {
		e.set(k, v)
	}
}

// SetCounters updates gauges from a flat counter map, such as SysStats output
func (e *PromExporter) SetCounters(counters map[string]uint64) {
	for k, v := range counters {
		e.set(k, float64(v))
	}
}

// Handler serves the registry
func (e *PromExporter) Handler() http.Handler {
	return promhttp.HandlerFor(
		e.registry,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,
		},
	)
}

func (e *PromExporter) set(key string, val float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.gauges[key]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + flattenKey(key),
			Help: key,
		})
		if err := e.registry.Register(g); err != nil {
			are := &prometheus.AlreadyRegisteredError{}
			if !errors.As(err, are) {
				log.Errorf("[prometheus] failed to register metric %s: %v", key, err)
				return
			}
			g = are.ExistingCollector.(prometheus.Gauge)
		}
		e.gauges[key] = g
	}
	g.Set(val)
}

func flattenKey(key string) string {
	return strings.NewReplacer(" ", "_", ".", "_", "-", "_", "=", "_", "/", "_").Replace(key)
}
