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

package checker

import (
	"errors"
	"fmt"
	"math"

	"github.com/Knetic/govaluate"

	"github.com/pulsetime/gpsntp/discipline"
)

var (
	errClockUnhealthy     = errors.New("clock health expression is false")
	errClockCheckNotBool  = errors.New("clock health expression must evaluate to bool")
	errUnsupportedVarName = errors.New("unsupported variable")
)

// variables available in clock health expressions
var supportedVars = map[string]bool{
	"valid":       true,
	"state":       true,
	"jitter_ns":   true,
	"dispersion":  true,
	"satellites":  true,
	"fix_quality": true,
	"timeouts":    true,
	"timewarps":   true,
	"valid_count": true,
	"freq_ppm":    true,
	"late_fixes":  true,
}

var functions = map[string]govaluate.ExpressionFunction{
	"abs": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("abs: wrong number of arguments: want 1, got %d", len(args))
		}
		val, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("abs: want number, got %T", args[0])
		}
		return math.Abs(val), nil
	},
}

// StatusSource returns the current clock status
type StatusSource func() discipline.Status

// ClockChecker evaluates a boolean expression over the clock status,
// for example "valid && jitter_ns < 10000 && abs(freq_ppm) < 50"
type ClockChecker struct {
	expr   *govaluate.EvaluableExpression
	status StatusSource
}

// NewClockChecker parses expression and checks it only uses known variables
func NewClockChecker(expression string, status StatusSource) (*ClockChecker, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, functions)
	if err != nil {
		return nil, fmt.Errorf("parsing clock health expression: %w", err)
	}
	for _, v := range expr.Vars() {
		if !supportedVars[v] {
			return nil, fmt.Errorf("%w %q", errUnsupportedVarName, v)
		}
	}
	return &ClockChecker{expr: expr, status: status}, nil
}

// StatusParameters converts clock status into expression parameters
func StatusParameters(s discipline.Status) map[string]interface{} {
	jitterNS := 0.0
	if s.TicksPerSecond != 0 {
		jitterNS = float64(s.Jitter) * 1e9 / float64(s.TicksPerSecond)
	}
	return map[string]interface{}{
		"valid":       s.State.State == discipline.StateValid,
		"state":       s.State.State.String(),
		"jitter_ns":   jitterNS,
		"dispersion":  s.Dispersion,
		"satellites":  float64(s.Satellites),
		"fix_quality": float64(s.FixQuality),
		"timeouts":    float64(s.Timeouts),
		"timewarps":   float64(s.Timewarps),
		"valid_count": float64(s.ValidCount),
		"freq_ppm":    s.FrequencyPPM,
		"late_fixes":  float64(s.LateFixes),
	}
}

// Check evaluates the expression against the current status
func (c *ClockChecker) Check() error {
	res, err := c.expr.Evaluate(StatusParameters(c.status()))
	if err != nil {
		return fmt.Errorf("evaluating clock health expression: %w", err)
	}
	ok, isBool := res.(bool)
	if !isBool {
		return fmt.Errorf("%w, got %T", errClockCheckNotBool, res)
	}
	if !ok {
		return fmt.Errorf("%w: %s", errClockUnhealthy, c.expr.String())
	}
	return nil
}
