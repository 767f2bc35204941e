// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mqttsink publishes readings to an MQTT broker.
package mqttsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/wxlistener/internal/config"
	"github.com/Thermoquad/wxlistener/internal/sink"
)

// Broker session settings
const (
	ConnectTimeout = 5 * time.Second
	KeepAlive      = 30 * time.Second
	QoS            = byte(1)

	tokenPoll = 200 * time.Millisecond
)

// Message is the published document
type Message struct {
	Timestamp string             `json:"timestamp" cbor:"timestamp"`
	Data      map[string]float64 `json:"data" cbor:"data"`
}

// Encode renders a reading as json or cbor
func Encode(r sink.Reading, format string) ([]byte, error) {
	msg := Message{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
		Data:      r.Data,
	}
	switch format {
	case config.PayloadJSON:
		return json.Marshal(msg)
	case config.PayloadCBOR:
		return cbor.Marshal(msg)
	default:
		return nil, fmt.Errorf("unknown payload format %q", format)
	}
}

// Publisher is a connected MQTT sink
type Publisher struct {
	client    mqtt.Client
	topic     string
	format    string
	logger    *slog.Logger
	closeOnce sync.Once
}

// Connect dials the broker described by cfg
func Connect(ctx context.Context, cfg *config.MQTTConfig, logger *slog.Logger) (*Publisher, error) {
	broker, err := cfg.Broker()
	if err != nil {
		return nil, err
	}
	format, err := cfg.Format()
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker.URL())
	opts.SetClientID(cfg.GetClientID())
	opts.SetCleanSession(true)
	opts.SetKeepAlive(KeepAlive)
	opts.SetConnectTimeout(ConnectTimeout)
	opts.SetAutoReconnect(true)
	if broker.Username != "" {
		opts.SetUsername(broker.Username)
	}
	if broker.Password != "" {
		opts.SetPassword(broker.Password)
	}
	if broker.TLS {
		tlsCfg, err := config.LoadTLS(cfg.CACert, cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("mqtt connected", "broker", broker.URL(), "topic", broker.Topic)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	if err := wait(ctx, client.Connect()); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker.URL(), err)
	}

	return newPublisher(client, broker.Topic, format, logger), nil
}

func newPublisher(client mqtt.Client, topic, format string, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, topic: topic, format: format, logger: logger}
}

// Topic is the publish topic
func (p *Publisher) Topic() string { return p.topic }

func (p *Publisher) Name() string { return "mqtt" }

// Publish sends one reading at QoS 1 without retain
func (p *Publisher) Publish(ctx context.Context, r sink.Reading) error {
	payload, err := Encode(r, p.format)
	if err != nil {
		return err
	}
	if err := wait(ctx, p.client.Publish(p.topic, QoS, false, payload)); err != nil {
		return fmt.Errorf("failed to publish MQTT message: %w", err)
	}
	p.logger.Debug("mqtt published", "topic", p.topic, "bytes", len(payload))
	return nil
}

// Close disconnects once; later calls are no-ops
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.client.Disconnect(250)
	})
	return nil
}

// wait blocks on a paho token until it completes or ctx ends
func wait(ctx context.Context, token mqtt.Token) error {
	for {
		if token.WaitTimeout(tokenPoll) {
			return token.Error()
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return errors.New("timed out")
			}
			return ctx.Err()
		default:
		}
	}
}
