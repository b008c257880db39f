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
Package server implements simple UDP server to work with NTP packets.
Every reply is stamped from the disciplined clock, and nothing is sent
while the clock is not trusted. In addition, it runs the checker.
*/
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pulsetime/gpsntp/discipline"
	"github.com/pulsetime/gpsntp/dscp"
	ntp "github.com/pulsetime/gpsntp/ntp/protocol"
)

// stratum is what we claim as a server with a directly attached reference clock
const stratum = 1

// readBufferSize is larger than a packet so oversized requests are noticed
const readBufferSize = 2 * ntp.PacketSizeBytes

var (
	errRateLimited = errors.New("request rate limit exceeded")
	errUnsynced    = errors.New("clock is not valid")
)

// task is a data structure with everything needed to work independently on NTP packet.
type task struct {
	conn     *net.UDPConn
	addr     netip.AddrPort
	received discipline.Snapshot
	request  *ntp.Packet
}

// Server is a type for UDP server which handles connections.
type Server struct {
	Config  Config
	Clock   Clock
	Stats   Stats
	Checker Checker
	// Precision is the cost of reading the Clock, estimated before Start
	Precision int8

	limiter *rate.Limiter
	tasks   chan task
}

// Start UDP server. It blocks until ctx is done, cancelFunc is called on fatal errors.
func (s *Server) Start(ctx context.Context, cancelFunc context.CancelFunc) {
	s.setupLimiter()
	log.Infof("[server] creating %d goroutine workers", s.Config.Workers)
	s.tasks = make(chan task, s.Config.Workers)
	// Pre-create workers
	for i := 0; i < s.Config.Workers; i++ {
		go s.startWorker(ctx)
	}

	log.Infof("[server] starting %d listener(s)", len(s.Config.IPs))
	for _, ip := range s.Config.IPs {
		log.Infof("[server] starting listener on %s:%d", ip.String(), s.Config.Port)
		conn, err := s.listen(ip)
		if err != nil {
			log.Errorf("[server] %v", err)
			cancelFunc()
			return
		}
		go func() {
			<-ctx.Done()
			conn.Close()
		}()
		go func() {
			s.Stats.IncListeners()
			defer s.Stats.DecListeners()
			s.startListener(conn)
		}()
	}

	// Run checker periodically
	go s.runChecker(ctx, cancelFunc)

	<-ctx.Done()
}

func (s *Server) setupLimiter() {
	if s.Config.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(s.Config.RateLimit), s.Config.RateBurst)
	}
}

func (s *Server) listen(ip net.IP) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: s.Config.Port})
	if err != nil {
		return nil, fmt.Errorf("listening on %s:%d: %w", ip, s.Config.Port, err)
	}
	if s.Config.DSCP > 0 {
		if err := dscp.EnableConn(conn, ip, s.Config.DSCP); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func (s *Server) runChecker(ctx context.Context, cancelFunc context.CancelFunc) {
	ticker := time.NewTicker(s.Config.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Debug("[checker] running internal health checks")
			if err := s.Checker.Check(); err != nil {
				log.Errorf("[checker] internal error: %v", err)
				cancelFunc()
				return
			}
		}
	}
}

func (s *Server) startListener(conn *net.UDPConn) {
	s.Checker.IncListeners()
	defer s.Checker.DecListeners()

	buf := make([]byte, readBufferSize)
	for {
		n, addr, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Warning("[server] listener connection closed, exiting listener server")
				return
			}
			log.Errorf("[server] failed to read packet on %s: %v", conn.LocalAddr(), err)
			s.Stats.IncReadError()
			continue
		}
		received, err := s.admit(buf[:n])
		if err != nil {
			log.Debugf("[server] dropping request from %v: %v", addr, err)
			continue
		}
		request := new(ntp.Packet)
		if err := request.UnmarshalBinary(buf[:n]); err != nil {
			log.Errorf("[server] failed to parse ntp packet: %v", err)
			s.Stats.IncReadError()
			continue
		}
		s.tasks <- task{conn: conn, addr: addr, received: received, request: request}
	}
}

func (s *Server) startWorker(ctx context.Context) {
	s.Checker.IncWorkers()
	defer s.Checker.DecWorkers()
	s.Stats.IncWorkers()
	defer s.Stats.DecWorkers()

	// Pre-allocating response
	response := &ntp.Packet{}
	s.fillStaticHeaders(response)
	buf := make([]byte, ntp.PacketSizeBytes)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.tasks:
			s.serve(t, response, buf)
		}
	}
}

// serve builds the reply for an admitted request and sends it
func (s *Server) serve(t task, response *ntp.Packet, buf []byte) {
	reply, err := s.respond(t.request, t.received, response, buf)
	if err != nil {
		log.Debugf("[server] not replying to %v: %v", t.addr, err)
		return
	}
	if _, err := t.conn.WriteToUDPAddrPort(reply, t.addr); err != nil {
		log.Debugf("[server] failed to respond to the request: %v", err)
		return
	}
	s.Stats.IncResponses()
}

// HandleRequest answers a single raw request. A nil reply means the request is dropped.
func (s *Server) HandleRequest(raw []byte) []byte {
	received, err := s.admit(raw)
	if err != nil {
		return nil
	}
	request, err := ntp.BytesToPacket(raw)
	if err != nil {
		s.Stats.IncReadError()
		return nil
	}
	response := &ntp.Packet{}
	s.fillStaticHeaders(response)
	reply, err := s.respond(request, received, response, make([]byte, ntp.PacketSizeBytes))
	if err != nil {
		return nil
	}
	s.Stats.IncResponses()
	return reply
}

// admit checks the length, counts the request and stamps its arrival.
// Requests of a wrong size are not counted.
func (s *Server) admit(raw []byte) (discipline.Snapshot, error) {
	if len(raw) != ntp.PacketSizeBytes {
		return discipline.Snapshot{}, fmt.Errorf("%w: got %d", ntp.ErrPacketSize, len(raw))
	}
	s.Stats.IncRequests()
	received := s.Clock.Snapshot()
	if !received.Valid {
		s.Stats.IncUnsynced()
		return received, errUnsynced
	}
	return received, nil
}

// respond fills the dynamic part of the reply and serializes it into buf
func (s *Server) respond(request *ntp.Packet, received discipline.Snapshot, response *ntp.Packet, buf []byte) ([]byte, error) {
	if !request.ValidSettingsFormat() {
		// unusual settings are still answered, only the length is enforced
		s.Stats.IncInvalidFormat()
		log.Debugf("[server] request with unusual settings 0x%02x", request.Settings)
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.Stats.IncRateLimited()
		return nil, errRateLimited
	}

	generateResponse(received, s.Clock.Snapshot(), s.Clock.Dispersion(), request, response)

	// Transmit Timestamp, as late as possible
	transmit := s.Clock.Snapshot()
	if !transmit.Valid {
		s.Stats.IncUnsynced()
		return nil, errUnsynced
	}
	response.TxTimeSec, response.TxTimeFrac = transmit.NTPTime()
	if err := response.MarshalBinaryTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// fillStaticHeaders pre-sets all the headers per worker which will never change
func (s *Server) fillStaticHeaders(response *ntp.Packet) {
	response.Settings = ntp.MakeSettings(ntp.LINoWarning, ntp.Version, ntp.ModeServer)
	response.Stratum = stratum
	response.Precision = s.Precision
	// processing delay placeholder, we are the reference
	response.RootDelay = s.Config.RootDelay
	response.ReferenceID = ntp.RefID(s.Config.RefID)
}

// generateResponse generates response NTP packet
// See more in ntp/protocol/packet.go.
func generateResponse(received, reference discipline.Snapshot, dispersion float64, request, response *ntp.Packet) {
	// Poll
	response.Poll = request.Poll

	// Root dispersion is the worst PPS interval deviation seen this session
	response.RootDispersion = ntp.ToFixed16(dispersion)

	// Reference Timestamp
	// RFC: "Local time at which the local clock was last set or corrected."
	// The PPS edge corrects us every second, so the freshest read is honest.
	response.RefTimeSec, response.RefTimeFrac = reference.NTPTime()

	// Originate Timestamp
	// RFC: "Local time at which the request departed the client host for the service host."
	response.OrigTimeSec = request.TxTimeSec
	response.OrigTimeFrac = request.TxTimeFrac

	// Receive Timestamp
	// RFC: "Local time at which the request arrived at the service host."
	response.RxTimeSec, response.RxTimeFrac = received.NTPTime()
}
