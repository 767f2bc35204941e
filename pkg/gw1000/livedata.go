// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gw1000

import "sort"

// LiveData maps field names (e.g. "outtemp") to decoded measurements.
// A LiveData value is created per poll and must not be modified by consumers.
type LiveData map[string]float64

// fieldSpec describes one live-data record: its name, its total width on the
// wire including the id byte, and the decoder applied to the value bytes.
type fieldSpec struct {
	name   string
	width  int
	decode func([]byte) float64
}

// Live-data field ids
const (
	FieldInTemp       = 0x01
	FieldOutTemp      = 0x02
	FieldInHumid      = 0x06
	FieldOutHumid     = 0x07
	FieldAbsBarometer = 0x08
	FieldRelBarometer = 0x09
	FieldWindDir      = 0x0A
	FieldWindSpeed    = 0x0B
	FieldGustSpeed    = 0x0C
	FieldRainEvent    = 0x0D
	FieldRainRate     = 0x0E
	FieldRainDay      = 0x10
	FieldRainWeek     = 0x11
	FieldRainMonth    = 0x12
	FieldRainYear     = 0x13
	FieldLight        = 0x15
	FieldUV           = 0x16
	FieldUVI          = 0x17
	FieldDayMaxWind   = 0x19
	FieldHeapFree     = 0x6C
)

var fieldTable = map[uint8]fieldSpec{
	FieldInTemp:       {"intemp", 3, DecodeTemp},
	FieldOutTemp:      {"outtemp", 3, DecodeTemp},
	FieldInHumid:      {"inhumid", 2, decodeByte},
	FieldOutHumid:     {"outhumid", 2, decodeByte},
	FieldAbsBarometer: {"absbarometer", 3, DecodePressure},
	FieldRelBarometer: {"relbarometer", 3, DecodePressure},
	FieldWindDir:      {"wind_dir", 3, DecodeShort},
	FieldWindSpeed:    {"wind_speed", 3, DecodeWind},
	FieldGustSpeed:    {"gust_speed", 3, DecodeWind},
	FieldRainEvent:    {"rain_event", 3, DecodeRain},
	FieldRainRate:     {"rain_rate", 3, DecodeRain},
	FieldRainDay:      {"rain_day", 3, DecodeRain},
	FieldRainWeek:     {"rain_week", 3, DecodeRain},
	FieldRainMonth:    {"rain_month", 5, decodeIntTenths},
	FieldRainYear:     {"rain_year", 5, decodeIntTenths},
	FieldLight:        {"light", 5, decodeIntTenths},
	FieldUV:           {"uv", 3, DecodeShort},
	FieldUVI:          {"uvi", 2, decodeByte},
	FieldDayMaxWind:   {"day_max_wind", 3, DecodeWind},
	FieldHeapFree:     {"heap_free", 5, DecodeInt},
}

// ParseLiveData walks a live-data payload and decodes every known field.
//
// Unknown ids advance the cursor by a single byte in an attempt to resync.
// A record cut short by the end of the payload stops the walk; whatever was
// decoded before it is returned.
func ParseLiveData(payload []byte) LiveData {
	result := make(LiveData)

	for i := 0; i < len(payload); {
		spec, ok := fieldTable[payload[i]]
		if !ok {
			i++
			continue
		}
		if i+spec.width > len(payload) {
			break
		}
		result[spec.name] = spec.decode(payload[i+1 : i+spec.width])
		i += spec.width
	}

	return result
}

// FieldName returns the measurement name for a live-data field id
func FieldName(id uint8) (string, bool) {
	spec, ok := fieldTable[id]
	return spec.name, ok
}

// FieldNames returns every known measurement name in sorted order
func FieldNames() []string {
	names := make([]string, 0, len(fieldTable))
	for _, spec := range fieldTable {
		names = append(names, spec.name)
	}
	sort.Strings(names)
	return names
}
