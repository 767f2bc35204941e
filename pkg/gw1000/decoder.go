// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gw1000

import "encoding/binary"

// Field decoders. Each takes exactly the value bytes of a field (2 or 4) and
// never fails: every input maps to a finite float.

// DecodeTemp decodes a signed big-endian tenth-degree temperature
func DecodeTemp(data []byte) float64 {
	return float64(int16(binary.BigEndian.Uint16(data))) / 10.0
}

// DecodeShort decodes an unscaled big-endian uint16
func DecodeShort(data []byte) float64 {
	return float64(binary.BigEndian.Uint16(data))
}

// DecodeInt decodes an unscaled big-endian uint32
func DecodeInt(data []byte) float64 {
	return float64(binary.BigEndian.Uint32(data))
}

// DecodeWind decodes a wind speed in tenths of m/s
func DecodeWind(data []byte) float64 {
	return float64(binary.BigEndian.Uint16(data)) / 10.0
}

// DecodeRain decodes a rain amount or rate in tenths of mm
func DecodeRain(data []byte) float64 {
	return float64(binary.BigEndian.Uint16(data)) / 10.0
}

// DecodePressure decodes a barometric pressure in tenths of hPa
func DecodePressure(data []byte) float64 {
	return float64(binary.BigEndian.Uint16(data)) / 10.0
}

func decodeByte(data []byte) float64 {
	return float64(data[0])
}

func decodeIntTenths(data []byte) float64 {
	return DecodeInt(data) / 10.0
}
