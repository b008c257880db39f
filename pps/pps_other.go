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

//go:build !linux

package pps

import (
	"context"
)

// Device is unavailable on this platform
type Device struct{}

// Open always fails with ErrUnsupported
func Open(_ string, _ Edge) (*Device, error) {
	return nil, ErrUnsupported
}

// Run always fails with ErrUnsupported
func (d *Device) Run(_ context.Context, _ func(tick uint32)) error {
	return ErrUnsupported
}

// Close does nothing
func (d *Device) Close() error {
	return nil
}
