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
Package pps reads pulse-per-second edges from the Linux PPS subsystem.

Edges are reported in CLOCK_REALTIME nanoseconds truncated to 32 bits, so
RealtimeTicks is the TickSource they pair with.
*/
package pps

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnsupported is returned on platforms without a PPS subsystem
var ErrUnsupported = errors.New("pps devices are only supported on linux")

// Edge selects which edge of the pulse marks the second
type Edge int

// Supported edges
const (
	EdgeAssert Edge = iota
	EdgeClear
)

var edgeToString = map[Edge]string{
	EdgeAssert: "assert",
	EdgeClear:  "clear",
}

func (e Edge) String() string {
	if s, ok := edgeToString[e]; ok {
		return s
	}
	return "unknown"
}

// ParseEdge parses "assert" or "clear"
func ParseEdge(s string) (Edge, error) {
	for e, str := range edgeToString {
		if strings.EqualFold(s, str) {
			return e, nil
		}
	}
	return EdgeAssert, fmt.Errorf("unknown pps edge %q", s)
}

// UnmarshalYAML reads the edge by name
func (e *Edge) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	edge, err := ParseEdge(s)
	if err != nil {
		return err
	}
	*e = edge
	return nil
}

// RealtimeTicks counts CLOCK_REALTIME nanoseconds modulo 2^32
type RealtimeTicks struct{}

// Ticks returns the current tick
func (RealtimeTicks) Ticks() uint32 {
	return uint32(time.Now().UnixNano())
}

// TicksPerSecond is one tick per nanosecond
func (RealtimeTicks) TicksPerSecond() uint32 {
	return uint32(time.Second)
}

// tick truncates a timestamp to the RealtimeTicks counter
func tick(sec int64, nsec int32) uint32 {
	return uint32(sec*int64(time.Second) + int64(nsec))
}
