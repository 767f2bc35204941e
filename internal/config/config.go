// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the wxlistener TOML configuration file and applies
// WXLISTENER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "WXLISTENER"

// Config is the top-level configuration file
type Config struct {
	IP       string          `mapstructure:"ip"`
	Port     int             `mapstructure:"port"`
	Database *DatabaseConfig `mapstructure:"database"`
	MQTT     *MQTTConfig     `mapstructure:"mqtt"`
	HTTP     *HTTPConfig     `mapstructure:"http"`
}

// envKeys lists the keys that may be set from the environment. Keys map to
// WXLISTENER_<SECTION>_<KEY> unless an explicit name is given. Section keys
// only apply when the file has that section.
var envKeys = map[string][]string{
	"ip":                         nil,
	"port":                       nil,
	"database.connection_string": nil,
	"database.password":          nil,
	"mqtt.connection_string":     nil,
	"mqtt.password":              nil,
	"http.url":                   nil,
	"http.authorization":         {"WXLISTENER_HTTP_AUTH", "WXLISTENER_HTTP_AUTHORIZATION"},
}

// Load reads the configuration file at path. Environment overrides are
// applied on top of the file contents.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("port", gw1000.DefaultPort)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envKeys {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	// Bound env keys make viper report every section as set, so presence is
	// decided by the file alone.
	hasDatabase := v.InConfig("database")
	hasMQTT := v.InConfig("mqtt")
	hasHTTP := v.InConfig("http")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	if !hasDatabase {
		cfg.Database = nil
	}
	if !hasMQTT {
		cfg.MQTT = nil
	}
	if !hasHTTP {
		cfg.HTTP = nil
	}
	if cfg.Database != nil && cfg.Database.TableName == "" {
		cfg.Database.TableName = DefaultTableName
	}
	return &cfg, nil
}

// DeviceAddress resolves the gateway "host:port". A loaded config file takes
// precedence over the command line flags.
func DeviceAddress(cfg *Config, flagIP string, flagPort int) (string, error) {
	switch {
	case cfg != nil:
		if cfg.IP == "" {
			return "", errors.New("config file does not set ip")
		}
		port := cfg.Port
		if port == 0 {
			port = gw1000.DefaultPort
		}
		return net.JoinHostPort(cfg.IP, strconv.Itoa(port)), nil
	case flagIP != "":
		port := flagPort
		if port == 0 {
			port = gw1000.DefaultPort
		}
		return net.JoinHostPort(flagIP, strconv.Itoa(port)), nil
	default:
		return "", errors.New("either --ip or --config must be specified")
	}
}
