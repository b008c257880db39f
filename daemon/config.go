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

package daemon

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/pulsetime/gpsntp/discipline"
	"github.com/pulsetime/gpsntp/gnss"
	"github.com/pulsetime/gpsntp/ntp/responder/server"
	"github.com/pulsetime/gpsntp/pps"
	"github.com/pulsetime/gpsntp/rtc"
)

// defaults of the daemon config
const (
	DefaultNMEADevice     = "/dev/ttyAMA0"
	DefaultPPSDevice      = "/dev/pps0"
	DefaultReportInterval = 10 * time.Second
	DefaultSourceRetry    = 5 * time.Second
)

// GNSSConfig describes the NMEA serial port
type GNSSConfig struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud_rate"`
}

// PPSConfig describes the PPS device
type PPSConfig struct {
	Device string   `yaml:"device"`
	Edge   pps.Edge `yaml:"edge"`
}

// RTCConfig describes the optional RTC
type RTCConfig struct {
	Enable        bool          `yaml:"enable"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	WriteInterval time.Duration `yaml:"write_interval"`
}

// Config represents configuration we expect to read from file
type Config struct {
	Clock  discipline.Config `yaml:"clock"`
	Server server.Config     `yaml:"server"`
	GNSS   GNSSConfig        `yaml:"gnss"`
	PPS    PPSConfig         `yaml:"pps"`
	RTC    RTCConfig         `yaml:"rtc"`

	MonitoringPort      int           `yaml:"monitoring_port"`       // 0 disables the HTTP endpoints
	ReportInterval      time.Duration `yaml:"report_interval"`       // how often telemetry is published
	HealthExpression    string        `yaml:"health_expression"`     // optional govaluate expression over clock status
	PrecisionSamples    int           `yaml:"precision_samples"`     // snapshots taken to estimate precision
	SourceRetryInterval time.Duration `yaml:"source_retry_interval"` // delay before reopening a failed gnss or pps device
	LogSyslog           bool          `yaml:"log_syslog"`            // also send logs to syslog
}

// DefaultConfig returns Config with default values
func DefaultConfig() *Config {
	return &Config{
		Clock:  discipline.DefaultConfig(),
		Server: server.DefaultConfig(),
		GNSS: GNSSConfig{
			Device:   DefaultNMEADevice,
			BaudRate: gnss.DefaultBaudRate,
		},
		PPS: PPSConfig{
			Device: DefaultPPSDevice,
			Edge:   pps.EdgeAssert,
		},
		RTC: RTCConfig{
			RetryInterval: rtc.DefaultRetryInterval,
			WriteInterval: rtc.DefaultWriteInterval,
		},
		ReportInterval:      DefaultReportInterval,
		PrecisionSamples:    discipline.DefaultPrecisionSamples,
		SourceRetryInterval: DefaultSourceRetry,
	}
}

// Validate makes sure config is valid
func (c *Config) Validate() error {
	if err := c.Clock.Validate(); err != nil {
		return fmt.Errorf("bad config: clock: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("bad config: server: %w", err)
	}
	if c.GNSS.Device == "" {
		return fmt.Errorf("bad config: 'gnss.device' must be specified")
	}
	if c.GNSS.BaudRate <= 0 {
		return fmt.Errorf("bad config: 'gnss.baud_rate' must be >0")
	}
	if c.PPS.Device == "" {
		return fmt.Errorf("bad config: 'pps.device' must be specified")
	}
	if c.RTC.Enable && (c.RTC.RetryInterval <= 0 || c.RTC.WriteInterval <= 0) {
		return fmt.Errorf("bad config: rtc intervals must be >0")
	}
	if c.MonitoringPort < 0 || c.MonitoringPort > 65535 {
		return fmt.Errorf("bad config: invalid 'monitoring_port' %d", c.MonitoringPort)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("bad config: 'report_interval' must be >0")
	}
	if c.PrecisionSamples <= 0 {
		return fmt.Errorf("bad config: 'precision_samples' must be >0")
	}
	if c.SourceRetryInterval <= 0 {
		return fmt.Errorf("bad config: 'source_retry_interval' must be >0")
	}
	return nil
}

// ReadConfig reads config and unmarshals it from yaml on top of the defaults
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := DefaultConfig()
	err = yaml.UnmarshalStrict(data, c)
	return c, err
}
