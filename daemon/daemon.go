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
Package daemon wires the disciplined clock, its PPS, NMEA and RTC sources,
the NTP server and the monitoring endpoints into one process.
*/
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sddaemon "github.com/coreos/go-systemd/daemon"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pulsetime/gpsntp/discipline"
	"github.com/pulsetime/gpsntp/gnss"
	ntp "github.com/pulsetime/gpsntp/ntp/protocol"
	"github.com/pulsetime/gpsntp/ntp/responder/checker"
	"github.com/pulsetime/gpsntp/ntp/responder/server"
	"github.com/pulsetime/gpsntp/ntp/responder/stats"
	"github.com/pulsetime/gpsntp/rtc"
	"github.com/pulsetime/gpsntp/telemetry"
)

var errServerStopped = errors.New("ntp server stopped")

// readyPollInterval is how often we check if listeners and workers are up
const readyPollInterval = 50 * time.Millisecond

// healthKey is the gauge carrying the result of the health expression
const healthKey = "clock.healthy"

// statsPrefix namespaces the server counters exported on /
const statsPrefix = "ntp."

// FixSource delivers GPS fixes, such as gnss.Reader
type FixSource interface {
	Run(ctx context.Context, onFix func(discipline.FixRecord)) error
	Counters() gnss.Counters
}

// Daemon is the whole time server
type Daemon struct {
	cfg *Config

	clock   *discipline.Clock
	server  *server.Server
	checker *checker.SimpleChecker
	stats   *stats.JSONStats

	status   *telemetry.StatusHolder
	prom     *telemetry.PromExporter
	sysStats telemetry.SysStats
	health   *checker.ClockChecker
}

// New creates a Daemon with a clock driven by ticks
func New(cfg *Config, ticks discipline.TickSource) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clock, err := discipline.New(cfg.Clock, ticks, nil)
	if err != nil {
		return nil, fmt.Errorf("creating clock: %w", err)
	}
	cfg.Server.IPs.SetDefault()
	d := &Daemon{
		cfg:   cfg,
		clock: clock,
		checker: &checker.SimpleChecker{
			ExpectedListeners: int64(len(cfg.Server.IPs)),
			ExpectedWorkers:   int64(cfg.Server.Workers),
		},
		stats:  &stats.JSONStats{},
		status: &telemetry.StatusHolder{},
		prom:   telemetry.NewPromExporter(),
	}
	d.stats.SetPrefix(statsPrefix)
	d.server = &server.Server{
		Config:  cfg.Server,
		Clock:   clock,
		Stats:   d.stats,
		Checker: d.checker,
	}
	if cfg.HealthExpression != "" {
		d.health, err = checker.NewClockChecker(cfg.HealthExpression, clock.Status)
		if err != nil {
			clock.Stop()
			return nil, err
		}
	}
	return d, nil
}

// Clock returns the disciplined clock
func (d *Daemon) Clock() *discipline.Clock {
	return d.clock
}

// Run blocks until ctx is cancelled or the server fails.
// Failing gnss and pps sources are restarted.
// rtcDev may be nil if there is no RTC.
func (d *Daemon) Run(ctx context.Context, edges discipline.EdgeSource, fixes FixSource, rtcDev rtc.Device) error {
	defer d.clock.Stop()

	d.server.Precision = discipline.EstimatePrecision(d.clock, d.cfg.PrecisionSamples)
	log.Infof("[daemon] clock precision is 2^%d s", d.server.Precision)

	eg, ctx := errgroup.WithContext(ctx)
	if rtcDev != nil {
		eg.Go(func() error {
			if err := rtc.Seed(ctx, rtcDev, d.clock, d.cfg.RTC.RetryInterval); err != nil {
				return err
			}
			return rtc.WriteBack(ctx, rtcDev, d.clock, d.cfg.RTC.WriteInterval)
		})
	}
	// a silent PPS is caught by the watchdog
	eg.Go(func() error {
		return d.runSource(ctx, "pps", "", func(ctx context.Context) error {
			return edges.Run(ctx, d.clock.OnEdge)
		})
	})
	eg.Go(func() error {
		return d.runSource(ctx, "gnss", discipline.ReasonFixLost, func(ctx context.Context) error {
			return fixes.Run(ctx, d.clock.OnFix)
		})
	})
	eg.Go(func() error {
		d.watchEvents(ctx)
		return ctx.Err()
	})
	eg.Go(func() error {
		return d.serve(ctx)
	})
	if d.cfg.MonitoringPort > 0 {
		eg.Go(func() error {
			return d.runMonitoring(ctx)
		})
	}
	eg.Go(func() error {
		d.runReporter(ctx, fixes)
		return ctx.Err()
	})

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runSource keeps a device source running until ctx is done.
// Failures are logged and the source is restarted after SourceRetryInterval.
func (d *Daemon) runSource(ctx context.Context, name, reason string, run func(ctx context.Context) error) error {
	for {
		err := run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Errorf("[daemon] %s source failed, retrying in %v: %v", name, d.cfg.SourceRetryInterval, err)
		if reason != "" {
			d.clock.Invalidate(reason)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.cfg.SourceRetryInterval):
		}
	}
}

// serve runs the NTP server until ctx is done or the server gives up
func (d *Daemon) serve(ctx context.Context) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.notifyReady(sctx)
	d.server.Start(sctx, cancel)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errServerStopped
}

// notifyReady tells systemd we are up once all listeners and workers run
func (d *Daemon) notifyReady(ctx context.Context) {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.checker.Check() != nil {
				continue
			}
			log.Info("[daemon] ntp server is ready")
			notify(sddaemon.SdNotifyReady)
			return
		}
	}
}

// watchEvents logs validity transitions and mirrors them to systemd
func (d *Daemon) watchEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.clock.Events():
			if ev.Reason != "" {
				log.Warningf("[clock] %s -> %s at %d: %s", ev.From, ev.To, ev.Seconds, ev.Reason)
			} else {
				log.Infof("[clock] %s -> %s at %d", ev.From, ev.To, ev.Seconds)
			}
			notify(fmt.Sprintf("STATUS=%s", ev.To))
		}
	}
}

func notify(state string) {
	if _, err := sddaemon.SdNotify(false, state); err != nil {
		log.Warningf("[daemon] sd_notify %q: %v", state, err)
	}
}

// monitoringHandler routes the monitoring endpoints
func (d *Daemon) monitoringHandler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/", d.stats).Methods(http.MethodGet)
	r.Handle("/status", d.status).Methods(http.MethodGet)
	r.Handle("/metrics", d.prom.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", d.handleHealth).Methods(http.MethodGet)
	return r
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := d.checkHealth(); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	fmt.Fprintln(w, "OK")
}

// checkHealth runs the server checks and the clock health expression if set
func (d *Daemon) checkHealth() error {
	if err := d.checker.Check(); err != nil {
		return err
	}
	if d.health != nil {
		return d.health.Check()
	}
	if !d.clock.IsValid() {
		return fmt.Errorf("clock is %s", d.clock.State().State)
	}
	return nil
}

func (d *Daemon) runMonitoring(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", d.cfg.MonitoringPort),
		Handler:           d.monitoringHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Infof("[daemon] serving monitoring on %s", srv.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitoring: %w", err)
	}
	return ctx.Err()
}

// report assembles a report from the clock, server and gnss counters
func (d *Daemon) report(fixes FixSource) telemetry.Report {
	r := telemetry.NewReport(d.clock.Status())
	r.Precision = d.server.Precision
	r.RootDelayS = ntp.FromFixed16(d.cfg.Server.RootDelay)
	r.Requests = d.stats.Requests()
	r.Responses = d.stats.Responses()
	c := fixes.Counters()
	r.NMEASentences = c.Sentences
	r.NMEAErrors = c.Errors
	return r
}

func (d *Daemon) runReporter(ctx context.Context, fixes FixSource) {
	publishers := telemetry.Publishers{telemetry.Display{}, d.status, d.prom}
	ticker := time.NewTicker(d.cfg.ReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publishers.Publish(d.report(fixes))
			d.collectSysStats()
			if d.health != nil {
				healthy := uint64(0)
				if err := d.health.Check(); err == nil {
					healthy = 1
				} else {
					log.Debugf("[daemon] %v", err)
				}
				d.prom.SetCounters(map[string]uint64{healthKey: healthy})
			}
		}
	}
}

func (d *Daemon) collectSysStats() {
	counters, err := d.sysStats.Collect(d.cfg.ReportInterval)
	if err != nil {
		log.Warningf("[daemon] collecting system stats: %v", err)
		return
	}
	d.prom.SetCounters(counters)
}
