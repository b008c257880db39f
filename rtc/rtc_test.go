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
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pulsetime/gpsntp/discipline"
)

func TestSeed(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := NewMockDevice(ctrl)
	clock := NewMockClock(ctrl)

	gomock.InOrder(
		dev.EXPECT().ReadTime().Return(int64(1700000000), nil),
		clock.EXPECT().Seed(int64(1700000000)).Return(true),
	)
	require.NoError(t, Seed(context.Background(), dev, clock, time.Millisecond))
}

func TestSeedGPSFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := NewMockDevice(ctrl)
	clock := NewMockClock(ctrl)

	dev.EXPECT().ReadTime().Return(int64(1700000000), nil)
	clock.EXPECT().Seed(int64(1700000000)).Return(false)
	require.NoError(t, Seed(context.Background(), dev, clock, time.Millisecond))
}

func TestSeedRetriesOnBusError(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := NewMockDevice(ctrl)
	clock := NewMockClock(ctrl)

	gomock.InOrder(
		dev.EXPECT().ReadTime().Return(int64(0), fmt.Errorf("i2c nack")),
		clock.EXPECT().HoldInvalid(discipline.ReasonRTCBusError).Return(true),
		dev.EXPECT().ReadTime().Return(int64(0), fmt.Errorf("i2c nack")),
		clock.EXPECT().HoldInvalid(discipline.ReasonRTCBusError).Return(true),
		dev.EXPECT().ReadTime().Return(int64(1700000000), nil),
		clock.EXPECT().Seed(int64(1700000000)).Return(true),
	)
	require.NoError(t, Seed(context.Background(), dev, clock, time.Millisecond))
}

func TestSeedCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := NewMockDevice(ctrl)
	clock := NewMockClock(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	dev.EXPECT().ReadTime().Return(int64(0), fmt.Errorf("i2c nack"))
	clock.EXPECT().HoldInvalid(discipline.ReasonRTCBusError).DoAndReturn(func(string) bool {
		cancel()
		return true
	})

	require.ErrorIs(t, Seed(ctx, dev, clock, time.Hour), context.Canceled)
}

func TestSeedGivesUpAfterGPSLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := NewMockDevice(ctrl)
	clock := NewMockClock(ctrl)

	gomock.InOrder(
		dev.EXPECT().ReadTime().Return(int64(0), fmt.Errorf("i2c nack")),
		clock.EXPECT().HoldInvalid(discipline.ReasonRTCBusError).Return(true),
		dev.EXPECT().ReadTime().Return(int64(0), fmt.Errorf("i2c nack")),
		clock.EXPECT().HoldInvalid(discipline.ReasonRTCBusError).Return(false),
	)
	require.NoError(t, Seed(context.Background(), dev, clock, time.Millisecond))
}

// edgeTicks is a tick counter moved one second per edge
type edgeTicks struct {
	now uint32
}

func (e *edgeTicks) Ticks() uint32          { return e.now }
func (e *edgeTicks) TicksPerSecond() uint32 { return 1000000 }

func TestSeedBrokenRTCKeepsValidClock(t *testing.T) {
	ctrl := gomock.NewController(t)
	wd := discipline.NewMockWatchdog(ctrl)
	wd.EXPECT().Reset().AnyTimes()
	wd.EXPECT().Stop().AnyTimes()
	ticks := &edgeTicks{}
	clock, err := discipline.New(discipline.DefaultConfig(), ticks, func(time.Duration, func()) discipline.Watchdog {
		return wd
	})
	require.NoError(t, err)

	clock.OnFix(discipline.FixRecord{UTCSeconds: 1700000000, Satellites: 8, FixQuality: 1, SentenceValid: true})
	for i := 0; i < discipline.DefaultArmingCount; i++ {
		ticks.now += 1000000
		clock.OnEdge(ticks.now)
	}
	require.True(t, clock.IsValid())

	dev := NewMockDevice(ctrl)
	dev.EXPECT().ReadTime().Return(int64(0), fmt.Errorf("i2c nack")).AnyTimes()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, Seed(ctx, dev, clock, time.Millisecond))

	status := clock.Status()
	require.True(t, clock.IsValid())
	require.True(t, status.GPSLocked)
	require.Equal(t, int64(1700000010), status.Seconds)
}

func TestWriteBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := NewMockDevice(ctrl)
	clock := NewMockClock(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gomock.InOrder(
		clock.EXPECT().Snapshot().Return(discipline.Snapshot{UTCSeconds: 1700000000}),
		clock.EXPECT().Snapshot().Return(discipline.Snapshot{UTCSeconds: 1700000001, Valid: true}),
		dev.EXPECT().WriteTime(int64(1700000001)).Return(fmt.Errorf("i2c nack")),
		clock.EXPECT().Snapshot().Return(discipline.Snapshot{UTCSeconds: 1700000002, Valid: true}),
		dev.EXPECT().WriteTime(int64(1700000002)).DoAndReturn(func(int64) error {
			cancel()
			return nil
		}),
	)
	// the ticker may win the race with cancellation
	clock.EXPECT().Snapshot().Return(discipline.Snapshot{}).AnyTimes()
	require.ErrorIs(t, WriteBack(ctx, dev, clock, time.Millisecond), context.Canceled)
}
