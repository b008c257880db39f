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

import (
	"fmt"
	"time"
)

// defaults match the common receiver setup: 10 pulses to settle, 1% watchdog slack
const (
	DefaultArmingCount    = 10
	DefaultWatchdogPeriod = 1010 * time.Millisecond
	DefaultMinSatellites  = 4
	DefaultMinFixQuality  = 1
)

// Config holds tunables of the clock discipline
type Config struct {
	// ArmingCount is how many PPS edges must follow a fresh GPS lock before time is trusted
	ArmingCount uint32 `yaml:"arming_count"`
	// WatchdogPeriod is how long we wait for the next PPS edge
	WatchdogPeriod time.Duration `yaml:"watchdog_period"`
	// MinSatellites is the lowest satellite count we consider a lock
	MinSatellites uint8 `yaml:"min_satellites"`
	// MinFixQuality is the lowest GGA fix quality we consider a lock
	MinFixQuality uint8 `yaml:"min_fix_quality"`
	// LateFixThreshold skips time corrections from fixes arriving later than this after the edge. 0 disables.
	LateFixThreshold time.Duration `yaml:"late_fix_threshold"`
}

// DefaultConfig returns Config with default values
func DefaultConfig() Config {
	return Config{
		ArmingCount:    DefaultArmingCount,
		WatchdogPeriod: DefaultWatchdogPeriod,
		MinSatellites:  DefaultMinSatellites,
		MinFixQuality:  DefaultMinFixQuality,
	}
}

// Validate checks if config is valid
func (c *Config) Validate() error {
	if c.ArmingCount == 0 {
		return fmt.Errorf("arming_count must be positive")
	}
	if c.WatchdogPeriod <= time.Second {
		return fmt.Errorf("watchdog_period must be longer than 1s, got %v", c.WatchdogPeriod)
	}
	if c.LateFixThreshold < 0 || c.LateFixThreshold >= time.Second {
		return fmt.Errorf("late_fix_threshold must be within [0, 1s), got %v", c.LateFixThreshold)
	}
	return nil
}
