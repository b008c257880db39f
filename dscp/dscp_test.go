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

package dscp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEnableConnDSCP(t *testing.T) {
	conn4, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer conn4.Close()
	err = EnableConn(conn4, net.ParseIP("127.0.0.1"), 46)
	require.NoError(t, err)

	sc, err := conn4.SyscallConn()
	require.NoError(t, err)
	var tos int
	var gerr error
	err = sc.Control(func(fd uintptr) {
		tos, gerr = unix.GetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS)
	})
	require.NoError(t, err)
	require.NoError(t, gerr)
	require.Equal(t, 46<<2, tos)
}

func TestEnableConnDSCPv6(t *testing.T) {
	conn6, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("::"), Port: 0})
	require.NoError(t, err)
	defer conn6.Close()
	err = EnableConn(conn6, net.ParseIP("::"), 42)
	require.NoError(t, err)
}
