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

package pps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"github.com/vtolstov/go-ioctl"
	"golang.org/x/sys/unix"
)

// ppsMagic is missing from sys/unix package, defined in Linux include/uapi/linux/pps.h
const ppsMagic = 'p'

// ioctlPPSFetch is PPS_FETCH, the kernel declares it with a pointer argument
var ioctlPPSFetch = ioctl.IOWR(ppsMagic, 0xa4, unsafe.Sizeof(uintptr(0)))

// fetchTimeoutNsec with one second bounds a single wait so cancellation is noticed
const fetchTimeoutNsec = 500000000

// ppsKTime is struct pps_ktime
type ppsKTime struct {
	Sec   int64
	Nsec  int32
	Flags uint32
}

// ppsKInfo is struct pps_kinfo
type ppsKInfo struct {
	AssertSequence uint32
	ClearSequence  uint32
	AssertTu       ppsKTime
	ClearTu        ppsKTime
	CurrentMode    int32
	_              [4]byte
}

// ppsFData is struct pps_fdata
type ppsFData struct {
	Info    ppsKInfo
	Timeout ppsKTime
}

// Device is a /dev/ppsN. It is reopened when Run is called again after a failure.
type Device struct {
	path    string
	f       *os.File
	edge    Edge
	lastSeq uint32
}

// Open opens a PPS device
func Open(path string, edge Edge) (*Device, error) {
	d := &Device{path: path, edge: edge}
	if err := d.open(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) open() error {
	f, err := os.OpenFile(d.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("opening pps device: %w", err)
	}
	d.f = f
	return nil
}

// Run delivers edges until ctx is cancelled or the device fails.
// A failed device is closed.
func (d *Device) Run(ctx context.Context, onEdge func(tick uint32)) error {
	if d.f == nil {
		if err := d.open(); err != nil {
			return err
		}
	}
	for ctx.Err() == nil {
		info, err := d.fetch()
		if errors.Is(err, unix.ETIMEDOUT) || errors.Is(err, unix.EINTR) {
			log.Tracef("[pps] no edge on %s: %v", d.path, err)
			continue
		}
		if err != nil {
			d.Close()
			return fmt.Errorf("fetching pps event from %s: %w", d.path, err)
		}
		seq, ts := info.AssertSequence, info.AssertTu
		if d.edge == EdgeClear {
			seq, ts = info.ClearSequence, info.ClearTu
		}
		if seq == d.lastSeq {
			continue
		}
		d.lastSeq = seq
		onEdge(tick(ts.Sec, ts.Nsec))
	}
	return ctx.Err()
}

func (d *Device) fetch() (ppsKInfo, error) {
	data := ppsFData{Timeout: ppsKTime{Sec: 1, Nsec: fetchTimeoutNsec}}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), ioctlPPSFetch, uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return ppsKInfo{}, errno
	}
	return data.Info, nil
}

// Close closes the device if it is open
func (d *Device) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
