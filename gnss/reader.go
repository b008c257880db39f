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

package gnss

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/pulsetime/gpsntp/discipline"
)

// DefaultBaudRate is what most receivers talk out of the box
const DefaultBaudRate = 9600

var errPortClosed = errors.New("nmea port is closed")

// Reader reads NMEA lines from a receiver. A Reader made by Open
// reopens the serial port when Run is called again after a failure.
type Reader struct {
	open      func() (io.ReadCloser, error)
	port      io.ReadCloser
	assembler Assembler
}

// Open opens the serial device of the receiver
func Open(device string, baud int) (*Reader, error) {
	open := func() (io.ReadCloser, error) {
		mode := &serial.Mode{
			BaudRate: baud,
		}
		port, err := serial.Open(device, mode)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", device, err)
		}
		return port, nil
	}
	port, err := open()
	if err != nil {
		return nil, err
	}
	return &Reader{open: open, port: port}, nil
}

// NewReader reads NMEA lines from r
func NewReader(r io.ReadCloser) *Reader {
	return &Reader{port: r}
}

// Run delivers fixes until ctx is cancelled or the port fails.
// The port is closed when Run returns.
func (r *Reader) Run(ctx context.Context, onFix func(discipline.FixRecord)) error {
	if r.port == nil {
		if r.open == nil {
			return errPortClosed
		}
		port, err := r.open()
		if err != nil {
			return err
		}
		r.port = port
	}
	port := r.port
	defer func() {
		port.Close()
		r.port = nil
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// unblocks the scanner
			port.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		fix, ok, err := r.assembler.Process(scanner.Text())
		if err != nil {
			log.Debugf("[gnss] %v", err)
			continue
		}
		if ok {
			log.Tracef("[gnss] fix %+v", fix)
			onFix(fix)
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading nmea: %w", err)
	}
	return io.EOF
}

// Counters returns sentence counters, kept across reopens
func (r *Reader) Counters() Counters {
	return r.assembler.Counters()
}

// Close closes the port if it is open
func (r *Reader) Close() error {
	if r.port == nil {
		return nil
	}
	err := r.port.Close()
	r.port = nil
	return err
}
