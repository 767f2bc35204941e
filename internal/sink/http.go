// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Thermoquad/wxlistener/internal/config"
	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

// ReadingTimeFormat is the reading_date_time layout
const ReadingTimeFormat = "2006-01-02T15:04:05.000Z"

// maxErrorBody bounds how much of a failed response is kept
const maxErrorBody = 4096

// Measurement is the weather_measurement object posted to the endpoint
type Measurement struct {
	ReadingDateTime string   `json:"reading_date_time"`
	BarometerAbs    *float64 `json:"barometer_abs,omitempty"`
	BarometerRel    *float64 `json:"barometer_rel,omitempty"`
	DayMaxWind      *float64 `json:"day_max_wind,omitempty"`
	GustSpeed       *float64 `json:"gust_speed,omitempty"`
	Humidity        *int     `json:"humidity,omitempty"`
	Light           *float64 `json:"light,omitempty"`
	RainDay         *float64 `json:"rain_day,omitempty"`
	RainEvent       *float64 `json:"rain_event,omitempty"`
	RainRate        *float64 `json:"rain_rate,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	UV              *int     `json:"uv,omitempty"`
	UVI             *int     `json:"uvi,omitempty"`
	WindDir         *int     `json:"wind_dir,omitempty"`
	WindSpeed       *float64 `json:"wind_speed,omitempty"`
}

// Payload wraps a Measurement
type Payload struct {
	WeatherMeasurement Measurement `json:"weather_measurement"`
}

// NewMeasurement maps a reading onto the endpoint schema. Absent fields stay nil.
func NewMeasurement(data gw1000.LiveData, ts time.Time) Measurement {
	float := func(key string) *float64 {
		v, ok := data[key]
		if !ok {
			return nil
		}
		return &v
	}
	integer := func(key string) *int {
		v, ok := data[key]
		if !ok {
			return nil
		}
		i := int(v)
		return &i
	}

	return Measurement{
		ReadingDateTime: ts.UTC().Format(ReadingTimeFormat),
		BarometerAbs:    float("absbarometer"),
		BarometerRel:    float("relbarometer"),
		DayMaxWind:      float("day_max_wind"),
		GustSpeed:       float("gust_speed"),
		Humidity:        integer("outhumid"),
		Light:           float("light"),
		RainDay:         float("rain_day"),
		RainEvent:       float("rain_event"),
		RainRate:        float("rain_rate"),
		Temperature:     float("outtemp"),
		UV:              integer("uv"),
		UVI:             integer("uvi"),
		WindDir:         integer("wind_dir"),
		WindSpeed:       float("wind_speed"),
	}
}

// HTTP posts each reading as JSON
type HTTP struct {
	client        *http.Client
	url           string
	authorization string
}

// NewHTTP validates the endpoint from cfg
func NewHTTP(cfg *config.HTTPConfig) (*HTTP, error) {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid HTTP endpoint URL %q", endpoint)
	}
	return &HTTP{
		client:        &http.Client{Timeout: cfg.RequestTimeout()},
		url:           endpoint,
		authorization: cfg.Authorization,
	}, nil
}

// URL is the configured endpoint
func (h *HTTP) URL() string { return h.url }

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Publish(ctx context.Context, r Reading) error {
	body, err := json.Marshal(Payload{WeatherMeasurement: NewMeasurement(r.Data, r.Timestamp)})
	if err != nil {
		return fmt.Errorf("encode measurement: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.authorization != "" {
		req.Header.Set("Authorization", h.authorization)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("HTTP request failed with status %s: %s", resp.Status, text)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
