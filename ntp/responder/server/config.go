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
	"fmt"
	"net"
	"strings"
	"time"
)

// DefaultServerIPs is a default list of IPs server will bind to if nothing else is specified
var DefaultServerIPs = MultiIPs{net.ParseIP("0.0.0.0")}

// defaults of the server config
const (
	DefaultPort          = 123
	DefaultRefID         = "PPS "
	DefaultRootDelay     = 1
	DefaultWorkers       = 4
	DefaultCheckInterval = time.Minute
)

// Config is a server config structure
type Config struct {
	IPs           MultiIPs      `yaml:"ips"`
	Port          int           `yaml:"port"`
	RefID         string        `yaml:"refid"`
	RootDelay     uint32        `yaml:"root_delay"`
	Workers       int           `yaml:"workers"`
	DSCP          int           `yaml:"dscp"`
	RateLimit     float64       `yaml:"rate_limit"`
	RateBurst     int           `yaml:"rate_burst"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

// DefaultConfig returns Config with default values
func DefaultConfig() Config {
	return Config{
		Port:          DefaultPort,
		RefID:         DefaultRefID,
		RootDelay:     DefaultRootDelay,
		Workers:       DefaultWorkers,
		CheckInterval: DefaultCheckInterval,
	}
}

// MultiIPs is a wrapper allowing to set multiple IPs with flag parser
type MultiIPs []net.IP

// Set adds check to the runlist
func (m *MultiIPs) Set(ipaddr string) error {
	ip := net.ParseIP(ipaddr)
	if ip == nil {
		return fmt.Errorf("invalid ip address %s", ipaddr)
	}
	*m = append([]net.IP(*m), ip)
	return nil
}

// String returns joined list of checks
func (m *MultiIPs) String() string {
	ips := make([]string, 0, len(*m))
	for _, ip := range *m {
		ips = append(ips, ip.String())
	}
	return strings.Join(ips, ", ")
}

// SetDefault adds all checks to the runlist
func (m *MultiIPs) SetDefault() {
	if len(*m) != 0 {
		return
	}

	*m = DefaultServerIPs
}

// UnmarshalYAML reads a list of IP strings
func (m *MultiIPs) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var ips []string
	if err := unmarshal(&ips); err != nil {
		return err
	}
	for _, ip := range ips {
		if err := m.Set(ip); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if config is valid
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("will not start without workers")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if len(c.RefID) == 0 || len(c.RefID) > 4 {
		return fmt.Errorf("refid must be 1 to 4 characters, got %q", c.RefID)
	}
	for _, r := range c.RefID {
		if r > 127 {
			return fmt.Errorf("refid must be ASCII, got %q", c.RefID)
		}
	}
	if c.DSCP < 0 || c.DSCP > 63 {
		return fmt.Errorf("dscp must be within [0, 63], got %d", c.DSCP)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be positive when rate_limit is set")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive")
	}
	return nil
}
