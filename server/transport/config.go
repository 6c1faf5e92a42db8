/*
 * Copyright 2025 The Notepair Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package transport

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	// ErrInvalidTransportPort occurs when the port in the config is invalid.
	ErrInvalidTransportPort = errors.New("invalid port number for transport server")
	// ErrEmptyAuthSecret occurs when the auth secret in the config is empty.
	ErrEmptyAuthSecret = errors.New("empty auth secret for transport server")
	// ErrInvalidPingInterval occurs when the ping interval is invalid.
	ErrInvalidPingInterval = errors.New("invalid ping interval for transport server")
)

// Config is the configuration for creating a Server instance.
type Config struct {
	// Port is the port number for the transport server.
	Port int `yaml:"Port"`

	// AuthSecret is the HMAC secret used to verify connection tokens.
	AuthSecret string `yaml:"AuthSecret"`

	// PingInterval is the interval of keepalive pings to connections.
	PingInterval string `yaml:"PingInterval"`
}

// Validate validates the port number and the auth secret.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidTransportPort)
	}

	if c.AuthSecret == "" {
		return ErrEmptyAuthSecret
	}

	if _, err := time.ParseDuration(c.PingInterval); err != nil {
		return fmt.Errorf("%s: %w", c.PingInterval, ErrInvalidPingInterval)
	}

	return nil
}

// ParsePingInterval returns the ping interval as a time.Duration.
func (c *Config) ParsePingInterval() time.Duration {
	result, err := time.ParseDuration(c.PingInterval)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse ping interval:", err)
		os.Exit(1)
	}

	return result
}
