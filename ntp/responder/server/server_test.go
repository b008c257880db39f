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
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"

	"github.com/pulsetime/gpsntp/discipline"
	protocol "github.com/pulsetime/gpsntp/ntp/protocol"
	"github.com/pulsetime/gpsntp/ntp/responder/checker"
	"github.com/pulsetime/gpsntp/ntp/responder/stats"
)

// Packet request. From ntpdate run
var ntpRequest = &protocol.Packet{
	Settings:       227,
	Poll:           3,
	Precision:      -6,
	RootDelay:      65536,
	RootDispersion: 65536,
	TxTimeSec:      3794210679,
	TxTimeFrac:     2718216404,
}

var validSnapshot = discipline.Snapshot{
	UTCSeconds:     1700000000,
	SubSecondTicks: 250000,
	TicksPerSecond: 1000000,
	Valid:          true,
}

// fakeClock returns snapshots from a list, repeating the last one
type fakeClock struct {
	sync.Mutex
	snapshots  []discipline.Snapshot
	dispersion float64
	reads      int
}

func (f *fakeClock) Snapshot() discipline.Snapshot {
	f.Lock()
	defer f.Unlock()
	i := f.reads
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	f.reads++
	return f.snapshots[i]
}

func (f *fakeClock) Dispersion() float64 {
	return f.dispersion
}

// wallClock stamps replies from the system clock
type wallClock struct{}

func (wallClock) Snapshot() discipline.Snapshot {
	now := time.Now()
	return discipline.Snapshot{
		UTCSeconds:     now.Unix(),
		SubSecondTicks: uint32(now.Nanosecond()),
		TicksPerSecond: 1000000000,
		Valid:          true,
	}
}

func (wallClock) Dispersion() float64 {
	return 0.000001
}

func newTestServer(clock Clock) (*Server, *stats.JSONStats) {
	st := &stats.JSONStats{}
	s := &Server{
		Config: DefaultConfig(),
		Clock:  clock,
		Stats:  st,
		Checker: &checker.SimpleChecker{
			ExpectedListeners: 1,
			ExpectedWorkers:   1,
		},
		Precision: -20,
	}
	return s, st
}

func requestBytes(t testing.TB) []byte {
	b, err := ntpRequest.Bytes()
	require.NoError(t, err)
	return b
}

func TestFillStaticHeadersStratum(t *testing.T) {
	s := &Server{}
	response := &protocol.Packet{}
	s.fillStaticHeaders(response)
	require.Equal(t, uint8(1), response.Stratum)
}

func TestFillStaticHeadersSettings(t *testing.T) {
	s := &Server{}
	response := &protocol.Packet{}
	s.fillStaticHeaders(response)
	require.Equal(t, uint8(0x24), response.Settings)
	require.Equal(t, uint8(protocol.LINoWarning), response.LeapIndicator())
	require.Equal(t, uint8(protocol.ModeServer), response.Mode())
}

func TestFillStaticHeadersReferenceID(t *testing.T) {
	s := &Server{Config: Config{RefID: "CHANDLER"}}
	response := &protocol.Packet{}

	s.fillStaticHeaders(response)
	require.Equal(t, binary.BigEndian.Uint32([]byte("CHAN")), response.ReferenceID, "Reference-ID must be 4 bytes")
}

func TestFillStaticHeadersReferenceIDPadded(t *testing.T) {
	s := &Server{Config: Config{RefID: "GPS"}}
	response := &protocol.Packet{}

	s.fillStaticHeaders(response)
	require.Equal(t, binary.BigEndian.Uint32([]byte("GPS ")), response.ReferenceID)
}

func TestFillStaticHeadersRootDelay(t *testing.T) {
	s := &Server{Config: DefaultConfig()}
	response := &protocol.Packet{}

	s.fillStaticHeaders(response)
	require.Equal(t, uint32(1), response.RootDelay)
}

func TestFillStaticHeadersPrecision(t *testing.T) {
	s := &Server{Precision: -21}
	response := &protocol.Packet{}

	s.fillStaticHeaders(response)
	require.Equal(t, int8(-21), response.Precision)
}

func TestGenerateResponsePoll(t *testing.T) {
	request := &protocol.Packet{Poll: 8}
	response := &protocol.Packet{}
	generateResponse(validSnapshot, validSnapshot, 0, request, response)
	require.Equal(t, request.Poll, response.Poll)
}

func TestGenerateResponseTimestamps(t *testing.T) {
	received := validSnapshot
	reference := validSnapshot
	reference.SubSecondTicks = 500000
	request := &protocol.Packet{TxTimeSec: 3794210679, TxTimeFrac: 2718216404}
	response := &protocol.Packet{}

	generateResponse(received, reference, 0.5, request, response)

	// Originate ts must be the same
	require.Equal(t, request.TxTimeSec, response.OrigTimeSec)
	require.Equal(t, request.TxTimeFrac, response.OrigTimeFrac)

	// Receive ts is the arrival snapshot
	require.Equal(t, uint32(1700000000+protocol.EpochOffset), response.RxTimeSec)
	require.Equal(t, uint32(1<<30), response.RxTimeFrac)

	// Reference ts is the fresh read
	require.Equal(t, uint32(1700000000+protocol.EpochOffset), response.RefTimeSec)
	require.Equal(t, uint32(1<<31), response.RefTimeFrac)

	require.Equal(t, uint32(32768), response.RootDispersion)
}

func TestHandleRequest(t *testing.T) {
	transmit := validSnapshot
	transmit.SubSecondTicks = 250100
	clock := &fakeClock{
		snapshots:  []discipline.Snapshot{validSnapshot, validSnapshot, transmit},
		dispersion: 0.5,
	}
	s, st := newTestServer(clock)
	s.Config.RefID = "GPS"

	reply := s.HandleRequest(requestBytes(t))
	require.Len(t, reply, protocol.PacketSizeBytes)

	response, err := protocol.BytesToPacket(reply)
	require.NoError(t, err)
	require.Equal(t, uint8(0x24), response.Settings)
	require.Equal(t, uint8(1), response.Stratum)
	require.Equal(t, int8(-20), response.Precision)
	require.Equal(t, protocol.RefID("GPS"), response.ReferenceID)
	require.Equal(t, uint32(32768), response.RootDispersion)
	require.Equal(t, ntpRequest.TxTimeSec, response.OrigTimeSec)
	require.Equal(t, ntpRequest.TxTimeFrac, response.OrigTimeFrac)
	require.Equal(t, ntpRequest.Poll, response.Poll)

	txSec, txFrac := transmit.NTPTime()
	require.Equal(t, txSec, response.TxTimeSec)
	require.Equal(t, txFrac, response.TxTimeFrac)
	require.GreaterOrEqual(t, response.TxTimeFrac, response.RxTimeFrac)

	require.Equal(t, int64(1), st.Requests())
	require.Equal(t, int64(1), st.Responses())
}

func TestHandleRequestDecodes(t *testing.T) {
	clock := &fakeClock{snapshots: []discipline.Snapshot{validSnapshot}}
	s, _ := newTestServer(clock)

	reply := s.HandleRequest(requestBytes(t))
	require.NotNil(t, reply)

	decoded := &layers.NTP{}
	require.NoError(t, decoded.DecodeFromBytes(reply, gopacket.NilDecodeFeedback))
	require.EqualValues(t, 0, decoded.LeapIndicator)
	require.EqualValues(t, 4, decoded.Version)
	require.EqualValues(t, 4, decoded.Mode)
	require.EqualValues(t, 1, decoded.Stratum)
	require.EqualValues(t, -20, decoded.Precision)
	require.EqualValues(t, protocol.RefID(DefaultRefID), decoded.ReferenceID)
	orig := uint64(ntpRequest.TxTimeSec)<<32 | uint64(ntpRequest.TxTimeFrac)
	require.EqualValues(t, orig, decoded.OriginTimestamp)
}

func TestHandleRequestWrongSize(t *testing.T) {
	clock := &fakeClock{snapshots: []discipline.Snapshot{validSnapshot}}
	s, st := newTestServer(clock)

	for _, size := range []int{0, 47, 49} {
		require.Nil(t, s.HandleRequest(make([]byte, size)))
	}
	require.Equal(t, int64(0), st.Requests())
	require.Equal(t, int64(0), st.Responses())
	require.Equal(t, 0, clock.reads)
}

func TestHandleRequestUnsynced(t *testing.T) {
	invalid := validSnapshot
	invalid.Valid = false
	clock := &fakeClock{snapshots: []discipline.Snapshot{invalid}}
	s, st := newTestServer(clock)

	require.Nil(t, s.HandleRequest(requestBytes(t)))
	require.Equal(t, int64(1), st.Requests())
	require.Equal(t, int64(0), st.Responses())
	require.Equal(t, int64(1), st.Snapshot()["unsynced"])
}

func TestHandleRequestUnsyncedAtTransmit(t *testing.T) {
	invalid := validSnapshot
	invalid.Valid = false
	clock := &fakeClock{snapshots: []discipline.Snapshot{validSnapshot, validSnapshot, invalid}}
	s, st := newTestServer(clock)

	require.Nil(t, s.HandleRequest(requestBytes(t)))
	require.Equal(t, int64(1), st.Requests())
	require.Equal(t, int64(0), st.Responses())
	require.Equal(t, int64(1), st.Snapshot()["unsynced"])
}

func TestHandleRequestUnusualSettings(t *testing.T) {
	for _, settings := range []uint8{0x00, 0x24, 0x1c, 0x21} {
		t.Run(fmt.Sprintf("0x%02x", settings), func(t *testing.T) {
			clock := &fakeClock{snapshots: []discipline.Snapshot{validSnapshot}}
			s, st := newTestServer(clock)

			request := *ntpRequest
			request.Settings = settings
			raw, err := request.Bytes()
			require.NoError(t, err)

			reply := s.HandleRequest(raw)
			require.NotNil(t, reply)
			response, err := protocol.BytesToPacket(reply)
			require.NoError(t, err)
			require.Equal(t, request.TxTimeSec, response.OrigTimeSec)
			require.Equal(t, request.TxTimeFrac, response.OrigTimeFrac)
			require.Equal(t, uint8(0x24), response.Settings)
			require.Equal(t, int64(1), st.Requests())
			require.Equal(t, int64(1), st.Responses())
			require.Equal(t, int64(1), st.Snapshot()["invalidformat"])
		})
	}
}

func TestHandleRequestRateLimited(t *testing.T) {
	clock := &fakeClock{snapshots: []discipline.Snapshot{validSnapshot}}
	s, st := newTestServer(clock)
	s.Config.RateLimit = 0.001
	s.Config.RateBurst = 1
	s.setupLimiter()

	require.NotNil(t, s.HandleRequest(requestBytes(t)))
	require.Nil(t, s.HandleRequest(requestBytes(t)))
	require.Equal(t, int64(2), st.Requests())
	require.Equal(t, int64(1), st.Responses())
	require.Equal(t, int64(1), st.Snapshot()["ratelimited"])
}

func TestListener(t *testing.T) {
	s, _ := newTestServer(wallClock{})
	s.Checker = &checker.SimpleChecker{ExpectedListeners: 1, ExpectedWorkers: 0}
	s.tasks = make(chan task, 1)

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer conn.Close()

	go s.startListener(conn)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, s.Checker.Check())
}

func TestWorker(t *testing.T) {
	s, st := newTestServer(wallClock{})
	s.Checker = &checker.SimpleChecker{ExpectedListeners: 0, ExpectedWorkers: 1}
	s.tasks = make(chan task)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// listen to incoming udp ntp.
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer conn.Close()

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer client.Close()

	go s.startWorker(ctx)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, s.Checker.Check())

	s.tasks <- task{
		conn:     conn,
		addr:     client.LocalAddr().(*net.UDPAddr).AddrPort(),
		received: wallClock{}.Snapshot(),
		request:  ntpRequest,
	}

	buf := make([]byte, readBufferSize)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err := client.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, protocol.PacketSizeBytes, n)
	require.Eventually(t, func() bool { return st.Responses() == 1 }, time.Second, 10*time.Millisecond)
}

func TestServeQuery(t *testing.T) {
	s, st := newTestServer(wallClock{})
	s.Checker = &checker.SimpleChecker{ExpectedListeners: 1, ExpectedWorkers: 1}
	s.tasks = make(chan task, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer conn.Close()

	go s.startWorker(ctx)
	go s.startListener(conn)

	response, err := ntp.QueryWithOptions(conn.LocalAddr().String(), ntp.QueryOptions{Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, response.Validate())
	require.Equal(t, uint8(1), response.Stratum)
	require.Equal(t, protocol.RefID(DefaultRefID), response.ReferenceID)
	require.Less(t, response.ClockOffset.Abs(), time.Second)
	require.Equal(t, int64(1), st.Requests())
	require.Eventually(t, func() bool { return st.Responses() == 1 }, time.Second, 10*time.Millisecond)
}

func Benchmark_generateResponse(b *testing.B) {
	request := &protocol.Packet{}
	response := &protocol.Packet{}
	for i := 0; i < b.N; i++ {
		generateResponse(validSnapshot, validSnapshot, 0.000001, request, response)
	}
}

func Benchmark_fillStaticHeaders(b *testing.B) {
	s := &Server{}
	for i := 0; i < b.N; i++ {
		response := &protocol.Packet{}
		s.fillStaticHeaders(response)
	}
}

func Benchmark_HandleRequest(b *testing.B) {
	s, _ := newTestServer(wallClock{})
	raw := requestBytes(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.HandleRequest(raw)
	}
}
