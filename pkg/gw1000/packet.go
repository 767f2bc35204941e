// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gw1000

import (
	"encoding/binary"
	"fmt"
)

// BuildRequest assembles a request packet: header, command, size, payload and
// checksum. The size byte counts command, size, payload and checksum bytes and
// wraps silently for payloads longer than 252 bytes, matching the device firmware.
func BuildRequest(cmd uint8, payload []byte) []byte {
	size := uint8(1 + 1 + len(payload) + 1)

	packet := make([]byte, 0, len(Header)+int(size))
	packet = append(packet, Header[:]...)
	packet = append(packet, cmd, size)
	packet = append(packet, payload...)
	packet = append(packet, Checksum(packet[len(Header):]))
	return packet
}

// VerifyResponse reports whether resp is a well-formed reply to expectedCmd:
// it must carry the header, echo the command and end with a valid checksum
// over everything from the command byte up to the checksum byte.
func VerifyResponse(resp []byte, expectedCmd uint8) bool {
	if len(resp) < minResponseSize {
		return false
	}
	if resp[0] != Header[0] || resp[1] != Header[1] {
		return false
	}
	if resp[2] != expectedCmd {
		return false
	}
	last := len(resp) - 1
	return Checksum(resp[2:last]) == resp[last]
}

// shortPayload extracts the payload of a response using a one byte size field
// at offset 3. The caller must have verified the response.
func shortPayload(resp []byte) ([]byte, error) {
	size := int(resp[3])
	if size < shortOverhead {
		return nil, fmt.Errorf("declared size %d below frame overhead %d", size, shortOverhead)
	}
	end := 4 + size - shortOverhead
	if end > len(resp) {
		return nil, fmt.Errorf("declared size %d exceeds received %d bytes", size, len(resp))
	}
	return resp[4:end], nil
}

// longPayload extracts the payload of a response using a two byte big-endian
// size field at offsets 3-4. Only the live-data command uses this layout.
func longPayload(resp []byte) ([]byte, error) {
	size := int(binary.BigEndian.Uint16(resp[3:5]))
	if size < longOverhead {
		return nil, fmt.Errorf("declared size %d below frame overhead %d", size, longOverhead)
	}
	end := 5 + size - longOverhead
	if end > len(resp) {
		return nil, fmt.Errorf("declared size %d exceeds received %d bytes", size, len(resp))
	}
	return resp[5:end], nil
}

// Payload extracts the payload of a verified response, picking the size field
// layout from the command byte
func Payload(resp []byte) ([]byte, error) {
	if len(resp) < minResponseSize {
		return nil, fmt.Errorf("response of %d bytes is shorter than a frame", len(resp))
	}
	if resp[2] == CmdLiveData {
		if len(resp) < minResponseSize+1 {
			return nil, fmt.Errorf("response of %d bytes is shorter than a frame", len(resp))
		}
		return longPayload(resp)
	}
	return shortPayload(resp)
}
