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

package protocol

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	// Unix
	usec  = int64(1585147599)
	unsec = int64(631495778)
	// NTP
	nsec  = uint32(3794136399)
	nfrac = uint32(2712253714)

	// Packet request. From ntpdate run
	ntpRequest = &Packet{
		Settings:       227,
		Stratum:        0,
		Poll:           3,
		Precision:      -6,
		RootDelay:      65536,
		RootDispersion: 65536,
		TxTimeSec:      3794210679,
		TxTimeFrac:     2718216404,
	}

	// Same request as above in bytes
	ntpRequestBytes = []byte{227, 0, 3, 250, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 226, 39, 15, 119, 162, 4, 176, 212}

	// Reply of a PPS disciplined server half a second into the edge
	ntpResponse = &Packet{
		Settings:       0x24,
		Stratum:        1,
		Poll:           3,
		Precision:      -21,
		RootDelay:      1,
		RootDispersion: 3,
		ReferenceID:    1347441440,
		RefTimeSec:     3794210679,
		RefTimeFrac:    0,
		OrigTimeSec:    3794210679,
		OrigTimeFrac:   2718216404,
		RxTimeSec:      3794210679,
		RxTimeFrac:     2147483648,
		TxTimeSec:      3794210679,
		TxTimeFrac:     2148557390,
	}
	// Same response as above in bytes
	ntpResponseBytes = []byte{36, 1, 3, 235, 0, 0, 0, 1, 0, 0, 0, 3, 80, 80, 83, 32, 226, 39, 15, 119, 0, 0, 0, 0, 226, 39, 15, 119, 162, 4, 176, 212, 226, 39, 15, 119, 128, 0, 0, 0, 226, 39, 15, 119, 128, 16, 98, 78}

	ntpBadRequest = &Packet{Settings: 0}
)

// Testing conversion so if Packet structure changes we notice
func TestRequestConversion(t *testing.T) {
	bytes, err := ntpRequest.Bytes()
	require.NoError(t, err)
	require.Equal(t, ntpRequestBytes, bytes)
}

// Testing conversion so if Packet structure changes we notice
func TestResponseConversion(t *testing.T) {
	bytes, err := ntpResponse.Bytes()
	require.NoError(t, err)
	require.Equal(t, ntpResponseBytes, bytes)
}

func TestBytesToPacket(t *testing.T) {
	packet, err := BytesToPacket(ntpResponseBytes)
	require.NoError(t, err)
	require.Equal(t, ntpResponse, packet)
}

func TestBytesToPacketError(t *testing.T) {
	for _, size := range []int{0, 47, 49} {
		packet, err := BytesToPacket(make([]byte, size))
		require.ErrorIs(t, err, ErrPacketSize)
		require.Equal(t, &Packet{}, packet)
	}
}

func TestMarshalBinaryToShortBuffer(t *testing.T) {
	err := ntpResponse.MarshalBinaryTo(make([]byte, 47))
	require.ErrorIs(t, err, ErrPacketSize)
}

func TestRequestSize(t *testing.T) {
	require.Equal(t, PacketSizeBytes, len(ntpRequestBytes))
}

func TestResponseSize(t *testing.T) {
	require.Equal(t, PacketSizeBytes, len(ntpResponseBytes))
}

func TestValidSettingsFormat(t *testing.T) {
	require.True(t, ntpRequest.ValidSettingsFormat())
}

func TestInvalidSettingsFormat(t *testing.T) {
	require.False(t, ntpBadRequest.ValidSettingsFormat())
	// server mode packets are not requests
	require.False(t, ntpResponse.ValidSettingsFormat())
	// version 5 doesn't exist
	require.False(t, (&Packet{Settings: MakeSettings(LINoWarning, 5, ModeClient)}).ValidSettingsFormat())
	// LI 1 is a leap warning, clients never send it
	require.False(t, (&Packet{Settings: MakeSettings(1, Version, ModeClient)}).ValidSettingsFormat())
}

func TestMakeSettings(t *testing.T) {
	require.Equal(t, uint8(0x24), MakeSettings(LINoWarning, Version, ModeServer))
	require.Equal(t, uint8(227), MakeSettings(LIAlarmCondition, Version, ModeClient))

	p := &Packet{Settings: 227}
	require.Equal(t, uint8(LIAlarmCondition), p.LeapIndicator())
	require.Equal(t, uint8(Version), p.VersionNumber())
	require.Equal(t, uint8(ModeClient), p.Mode())
}

func TestRefID(t *testing.T) {
	require.Equal(t, uint32(1347441440), RefID("PPS"))
	require.Equal(t, uint32(1347441440), RefID("PPS "))
	require.Equal(t, RefID("GPSD"), RefID("GPSDISCIPLINED"))
}

func TestTime(t *testing.T) {
	testtime := time.Unix(usec, unsec)
	sec, frac := Time(testtime)

	require.Equal(t, nsec, sec)
	require.Equal(t, nfrac, frac)
}

func TestUnix(t *testing.T) {
	testtime := Unix(nsec, nfrac)

	require.Equal(t, usec, testtime.Unix())
	// +1ns is a rounding issue
	require.Equal(t, unsec, int64(testtime.Nanosecond())+1)
}

func TestSecondsToNTP(t *testing.T) {
	require.Equal(t, nsec, SecondsToNTP(usec))
	require.Equal(t, uint32(2208988800), SecondsToNTP(0))
}

func TestTicksToFraction(t *testing.T) {
	require.Equal(t, uint32(0), TicksToFraction(0, 1000000000))
	require.Equal(t, uint32(1<<31), TicksToFraction(500000000, 1000000000))
	require.Equal(t, uint32(1<<30), TicksToFraction(250000, 1000000))
	// rounding, not truncation
	require.Equal(t, uint32(1431655765), TicksToFraction(1, 3))
	require.Equal(t, uint32(4294967292), TicksToFraction(999999999, 1000000000))
	// a full second saturates
	require.Equal(t, uint32(math.MaxUint32), TicksToFraction(1000000000, 1000000000))
	require.Equal(t, uint32(0), TicksToFraction(10, 0))
}

func TestToFixed16(t *testing.T) {
	require.Equal(t, uint32(0), ToFixed16(0))
	require.Equal(t, uint32(1), ToFixed16(0.000015))
	require.Equal(t, uint32(32768), ToFixed16(0.5))
	require.Equal(t, uint32(65536), ToFixed16(1))
	require.Equal(t, uint32(0), ToFixed16(-1))
	require.Equal(t, uint32(math.MaxUint32), ToFixed16(1e9))
	require.InDelta(t, 0.5, FromFixed16(32768), 1e-9)
}

func Benchmark_PacketToBytesConversion(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = ntpResponse.Bytes()
	}
}

func Benchmark_PacketMarshalBinaryTo(b *testing.B) {
	buf := make([]byte, PacketSizeBytes)
	for i := 0; i < b.N; i++ {
		_ = ntpResponse.MarshalBinaryTo(buf)
	}
}

func Benchmark_BytesToPacketConversion(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = BytesToPacket(ntpResponseBytes)
	}
}
