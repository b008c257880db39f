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

// Package dscp marks outgoing packets of a socket with a DSCP value
package dscp

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Enable sets DSCP on a socket. localAddr decides between IPv4 TOS and IPv6 traffic class.
func Enable(fd int, localAddr net.IP, dscp int) error {
	// DSCP lives in the upper 6 bits of the TOS byte
	tos := dscp << 2
	if localAddr.To4() == nil {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos); err != nil {
			return fmt.Errorf("setting DSCP on ipv6 socket: %w", err)
		}
		return nil
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos); err != nil {
		return fmt.Errorf("setting DSCP on ipv4 socket: %w", err)
	}
	return nil
}

// EnableConn sets DSCP on a UDP connection
func EnableConn(conn *net.UDPConn, localAddr net.IP, dscp int) error {
	sc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := sc.Control(func(fd uintptr) {
		serr = Enable(int(fd), localAddr, dscp)
	}); err != nil {
		return err
	}
	return serr
}
