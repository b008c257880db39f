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
	"encoding/binary"
	"errors"
	"fmt"
)

// PacketSizeBytes sets the size of NTP packet
const PacketSizeBytes = 48

// ErrPacketSize is returned when a buffer doesn't hold exactly one NTP packet
var ErrPacketSize = errors.New("ntp packet must be 48 bytes")

// Packet is an NTPv4 packet
/*
http://seriot.ch/ntp.php
https://tools.ietf.org/html/rfc5905
   0                   1                   2                   3
   0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
0 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |LI | VN  |Mode |    Stratum     |     Poll      |  Precision   |
4 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                         Root Delay                            |
8 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                         Root Dispersion                       |
12+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                          Reference ID                         |
16+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                     Reference Timestamp (64)                  |
24+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                      Origin Timestamp (64)                    |
32+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                      Receive Timestamp (64)                   |
40+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
  |                      Transmit Timestamp (64)                  |
48+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

Setting = LI | VN  |Mode. Server reply of this daemon:
00 100 100 (or 0x24)
|  |   +-- server mode (4)
|  + ----- version (4)
+ -------- leap indicator, 0 no warning
*/
type Packet struct {
	Settings       uint8  // leap indicator, version number and mode
	Stratum        uint8  // stratum
	Poll           int8   // poll. Power of 2
	Precision      int8   // precision. Power of 2
	RootDelay      uint32 // total delay to the reference clock, 16.16
	RootDispersion uint32 // total dispersion to the reference clock, 16.16
	ReferenceID    uint32 // identifier of server or a reference clock
	RefTimeSec     uint32 // last time local clock was updated sec
	RefTimeFrac    uint32 // last time local clock was updated frac
	OrigTimeSec    uint32 // client time sec
	OrigTimeFrac   uint32 // client time frac
	RxTimeSec      uint32 // receive time sec
	RxTimeFrac     uint32 // receive time frac
	TxTimeSec      uint32 // transmit time sec
	TxTimeFrac     uint32 // transmit time frac
}

// Leap indicator, version and mode values we use
const (
	LINoWarning      = 0
	LIAlarmCondition = 3
	VersionFirst     = 1
	Version          = 4
	ModeClient       = 3
	ModeServer       = 4
)

// MakeSettings packs LI, VN and Mode into the first byte
func MakeSettings(li, vn, mode uint8) uint8 {
	return (li&0x3)<<6 | (vn&0x7)<<3 | mode&0x7
}

// LeapIndicator returns LI bits
func (p *Packet) LeapIndicator() uint8 {
	return p.Settings >> 6
}

// VersionNumber returns VN bits
func (p *Packet) VersionNumber() uint8 {
	return (p.Settings >> 3) & 0x7
}

// Mode returns Mode bits
func (p *Packet) Mode() uint8 {
	return p.Settings & 0x7
}

// ValidSettingsFormat verifies that LI | VN  |Mode fields are set correctly
// check the first byte,include:
// LN:must be 0 or 3
// VN:must be 1,2,3 or 4
// Mode:must be 3
func (p *Packet) ValidSettingsFormat() bool {
	l := p.LeapIndicator()
	if l != LINoWarning && l != LIAlarmCondition {
		return false
	}
	if v := p.VersionNumber(); v < VersionFirst || v > Version {
		return false
	}
	return p.Mode() == ModeClient
}

// Bytes converts Packet to []bytes
func (p *Packet) Bytes() ([]byte, error) {
	b := make([]byte, PacketSizeBytes)
	return b, p.MarshalBinaryTo(b)
}

// MarshalBinaryTo writes the packet in network byte order into b
func (p *Packet) MarshalBinaryTo(b []byte) error {
	if len(b) < PacketSizeBytes {
		return fmt.Errorf("%w: buffer has %d", ErrPacketSize, len(b))
	}
	b[0] = p.Settings
	b[1] = p.Stratum
	b[2] = byte(p.Poll)
	b[3] = byte(p.Precision)
	binary.BigEndian.PutUint32(b[4:], p.RootDelay)
	binary.BigEndian.PutUint32(b[8:], p.RootDispersion)
	binary.BigEndian.PutUint32(b[12:], p.ReferenceID)
	binary.BigEndian.PutUint32(b[16:], p.RefTimeSec)
	binary.BigEndian.PutUint32(b[20:], p.RefTimeFrac)
	binary.BigEndian.PutUint32(b[24:], p.OrigTimeSec)
	binary.BigEndian.PutUint32(b[28:], p.OrigTimeFrac)
	binary.BigEndian.PutUint32(b[32:], p.RxTimeSec)
	binary.BigEndian.PutUint32(b[36:], p.RxTimeFrac)
	binary.BigEndian.PutUint32(b[40:], p.TxTimeSec)
	binary.BigEndian.PutUint32(b[44:], p.TxTimeFrac)
	return nil
}

// UnmarshalBinary reads a packet in network byte order
func (p *Packet) UnmarshalBinary(b []byte) error {
	if len(b) != PacketSizeBytes {
		return fmt.Errorf("%w: got %d", ErrPacketSize, len(b))
	}
	p.Settings = b[0]
	p.Stratum = b[1]
	p.Poll = int8(b[2])
	p.Precision = int8(b[3])
	p.RootDelay = binary.BigEndian.Uint32(b[4:])
	p.RootDispersion = binary.BigEndian.Uint32(b[8:])
	p.ReferenceID = binary.BigEndian.Uint32(b[12:])
	p.RefTimeSec = binary.BigEndian.Uint32(b[16:])
	p.RefTimeFrac = binary.BigEndian.Uint32(b[20:])
	p.OrigTimeSec = binary.BigEndian.Uint32(b[24:])
	p.OrigTimeFrac = binary.BigEndian.Uint32(b[28:])
	p.RxTimeSec = binary.BigEndian.Uint32(b[32:])
	p.RxTimeFrac = binary.BigEndian.Uint32(b[36:])
	p.TxTimeSec = binary.BigEndian.Uint32(b[40:])
	p.TxTimeFrac = binary.BigEndian.Uint32(b[44:])
	return nil
}

// BytesToPacket converts []bytes to Packet
func BytesToPacket(ntpPacketBytes []byte) (*Packet, error) {
	packet := &Packet{}
	err := packet.UnmarshalBinary(ntpPacketBytes)
	return packet, err
}

// RefID packs up to 4 ASCII characters into a reference ID, padding with spaces
func RefID(tag string) uint32 {
	b := []byte(fmt.Sprintf("%-4s", tag))
	return binary.BigEndian.Uint32(b[:4])
}
