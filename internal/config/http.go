// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"time"
)

// DefaultHTTPTimeout applies when [http] omits timeout
const DefaultHTTPTimeout = 10 * time.Second

// HTTPConfig is the [http] section
type HTTPConfig struct {
	URL           string `mapstructure:"url"`
	Timeout       int    `mapstructure:"timeout"`
	Authorization string `mapstructure:"authorization"`
}

// Endpoint returns the target URL
func (c *HTTPConfig) Endpoint() (string, error) {
	if c.URL == "" {
		return "", errors.New("HTTP endpoint URL must be specified via:\n" +
			" - Config file: [http] url = \"https://example.com/api/weather\"\n" +
			" - Environment: WXLISTENER_HTTP_URL=<URL>")
	}
	return c.URL, nil
}

// RequestTimeout returns the per-request timeout
func (c *HTTPConfig) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultHTTPTimeout
	}
	return time.Duration(c.Timeout) * time.Second
}
