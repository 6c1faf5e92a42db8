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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/notepair-team/notepair/server/backend"
	"github.com/notepair-team/notepair/server/backend/database/mongo"
	"github.com/notepair-team/notepair/server/profiling"
	"github.com/notepair-team/notepair/server/transport"
)

// Below are the values of the default values of Notepair config.
const (
	DefaultTransportPort = 8080
	DefaultProfilingPort = 8081

	DefaultAuthSecret   = "notepair-secret"
	DefaultPingInterval = 30 * time.Second

	DefaultFlushDebounce           = 3 * time.Second
	DefaultPresenceActivityTimeout = 30 * time.Second
	DefaultPresenceSweepInterval   = 30 * time.Second
	DefaultRestoreLockTTL          = 5 * time.Second
	DefaultHistoryListLimit        = 50

	DefaultMongoConnectionURI     = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout = 5 * time.Second
	DefaultMongoPingTimeout       = 5 * time.Second
	DefaultMongoNotepairDatabase  = "notepair-meta"
)

// Config is the configuration for creating a Notepair instance.
type Config struct {
	Transport *transport.Config `yaml:"Transport"`
	Profiling *profiling.Config `yaml:"Profiling"`
	Backend   *backend.Config   `yaml:"Backend"`
	Mongo     *mongo.Config     `yaml:"Mongo"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	conf := &Config{
		Transport: &transport.Config{},
		Profiling: &profiling.Config{},
		Backend:   &backend.Config{},
	}
	conf.ensureDefaultValue()
	return conf
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// TransportAddr returns the transport address.
func (c *Config) TransportAddr() string {
	return fmt.Sprintf("localhost:%d", c.Transport.Port)
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return err
	}

	if c.Profiling != nil {
		if err := c.Profiling.Validate(); err != nil {
			return err
		}
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Mongo != nil {
		if err := c.Mongo.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	if c.Transport == nil {
		c.Transport = &transport.Config{}
	}
	if c.Backend == nil {
		c.Backend = &backend.Config{}
	}

	if c.Transport.Port == 0 {
		c.Transport.Port = DefaultTransportPort
	}
	if c.Transport.AuthSecret == "" {
		c.Transport.AuthSecret = DefaultAuthSecret
	}
	if c.Transport.PingInterval == "" {
		c.Transport.PingInterval = DefaultPingInterval.String()
	}

	if c.Profiling != nil && c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Backend.FlushDebounce == "" {
		c.Backend.FlushDebounce = DefaultFlushDebounce.String()
	}
	if c.Backend.PresenceActivityTimeout == "" {
		c.Backend.PresenceActivityTimeout = DefaultPresenceActivityTimeout.String()
	}
	if c.Backend.PresenceSweepInterval == "" {
		c.Backend.PresenceSweepInterval = DefaultPresenceSweepInterval.String()
	}
	if c.Backend.RestoreLockTTL == "" {
		c.Backend.RestoreLockTTL = DefaultRestoreLockTTL.String()
	}
	if c.Backend.HistoryListLimit == 0 {
		c.Backend.HistoryListLimit = DefaultHistoryListLimit
	}

	if c.Mongo != nil {
		if c.Mongo.ConnectionURI == "" {
			c.Mongo.ConnectionURI = DefaultMongoConnectionURI
		}
		if c.Mongo.ConnectionTimeout == "" {
			c.Mongo.ConnectionTimeout = DefaultMongoConnectionTimeout.String()
		}
		if c.Mongo.PingTimeout == "" {
			c.Mongo.PingTimeout = DefaultMongoPingTimeout.String()
		}
		if c.Mongo.NotepairDatabase == "" {
			c.Mongo.NotepairDatabase = DefaultMongoNotepairDatabase
		}
	}
}
