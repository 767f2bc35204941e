// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// MQTT defaults
const (
	DefaultMQTTPort  = 1883
	DefaultMQTTTopic = "wx/live"
)

// Payload encodings for published readings
const (
	PayloadJSON = "json"
	PayloadCBOR = "cbor"
)

// MQTTConfig is the [mqtt] section
type MQTTConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	Topic            string `mapstructure:"topic"`
	ClientID         string `mapstructure:"client_id"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	CACert           string `mapstructure:"ca_cert"`
	ClientCert       string `mapstructure:"client_cert"`
	ClientKey        string `mapstructure:"client_key"`
	PayloadFormat    string `mapstructure:"payload_format"`
}

// Broker is the resolved MQTT endpoint
type Broker struct {
	TLS      bool
	Host     string
	Port     int
	Topic    string
	Username string
	Password string
}

// URL returns the broker address in the form paho expects
func (b Broker) URL() string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

// Broker resolves the connection string or the individual fields
func (c *MQTTConfig) Broker() (Broker, error) {
	if c.ConnectionString != "" {
		return c.parseConnectionString(c.ConnectionString)
	}
	if c.Host == "" {
		return Broker{}, errors.New("MQTT broker must be specified via:\n" +
			" - Connection string: mqtt://[username:password@]host:port/topic\n" +
			" - Individual fields: host, port (optional), topic (optional)")
	}
	b := Broker{
		TLS:      c.CACert != "",
		Host:     c.Host,
		Port:     c.Port,
		Topic:    c.Topic,
		Username: c.Username,
		Password: c.Password,
	}
	if b.Port == 0 {
		b.Port = DefaultMQTTPort
	}
	if b.Topic == "" {
		b.Topic = DefaultMQTTTopic
	}
	return b, nil
}

func (c *MQTTConfig) parseConnectionString(raw string) (Broker, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Broker{}, fmt.Errorf("failed to parse MQTT connection string: %w", err)
	}
	if u.Scheme != "mqtt" && u.Scheme != "mqtts" {
		return Broker{}, errors.New("MQTT connection string must start with mqtt:// or mqtts://")
	}
	if u.Hostname() == "" {
		return Broker{}, errors.New("MQTT connection string must include a host")
	}

	b := Broker{
		TLS:      u.Scheme == "mqtts" || c.CACert != "",
		Host:     u.Hostname(),
		Port:     DefaultMQTTPort,
		Topic:    c.Topic,
		Username: c.Username,
		Password: c.Password,
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Broker{}, fmt.Errorf("invalid MQTT port %q: %w", p, err)
		}
		b.Port = port
	}
	if path := strings.TrimPrefix(u.Path, "/"); path != "" {
		b.Topic = path
	}
	if b.Topic == "" {
		b.Topic = DefaultMQTTTopic
	}
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			b.Username = name
		}
		if pass, ok := u.User.Password(); ok {
			b.Password = pass
		}
	}
	return b, nil
}

// GetClientID returns client_id or wxlistener-<pid>
func (c *MQTTConfig) GetClientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return fmt.Sprintf("wxlistener-%d", os.Getpid())
}

// Format returns the payload encoding, defaulting to json
func (c *MQTTConfig) Format() (string, error) {
	switch strings.ToLower(c.PayloadFormat) {
	case "", PayloadJSON:
		return PayloadJSON, nil
	case PayloadCBOR:
		return PayloadCBOR, nil
	default:
		return "", fmt.Errorf("unknown MQTT payload_format %q (use json or cbor)", c.PayloadFormat)
	}
}
