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

package rtc

import (
	"fmt"
	"time"

	urtc "github.com/u-root/u-root/pkg/rtc"
)

// SystemRTC is the kernel RTC device
type SystemRTC struct {
	rtc *urtc.RTC
}

// OpenSystemRTC opens the first RTC device found
func OpenSystemRTC() (*SystemRTC, error) {
	r, err := urtc.OpenRTC()
	if err != nil {
		return nil, fmt.Errorf("opening rtc: %w", err)
	}
	return &SystemRTC{rtc: r}, nil
}

// ReadTime returns the RTC time as Unix seconds
func (s *SystemRTC) ReadTime() (int64, error) {
	t, err := s.rtc.Read()
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// WriteTime sets the RTC
func (s *SystemRTC) WriteTime(seconds int64) error {
	return s.rtc.Set(time.Unix(seconds, 0).UTC())
}
