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

package server_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/notepair-team/notepair/server"
)

func TestNewConfigFromFile(t *testing.T) {
	t.Run("fail read config file test", func(t *testing.T) {
		conf := server.NewConfig()
		assert.Equal(t, conf.TransportAddr(), "localhost:"+strconv.Itoa(server.DefaultTransportPort))
		_, err := server.NewConfigFromFile("nowhere.yml")
		assert.Error(t, err)
		assert.Equal(t, conf.Transport.Port, server.DefaultTransportPort)
		assert.Equal(t, conf.Transport.AuthSecret, server.DefaultAuthSecret)
		assert.Equal(t, conf.Backend.HistoryListLimit, server.DefaultHistoryListLimit)
	})

	t.Run("read config file test", func(t *testing.T) {
		conf, err := server.NewConfigFromFile("config.sample.yml")
		assert.NoError(t, err)
		assert.NoError(t, conf.Validate())

		assert.Equal(t, conf.Transport.Port, server.DefaultTransportPort)
		assert.Equal(t, conf.Transport.AuthSecret, server.DefaultAuthSecret)

		pingInterval, err := time.ParseDuration(conf.Transport.PingInterval)
		assert.NoError(t, err)
		assert.Equal(t, pingInterval, server.DefaultPingInterval)

		connTimeout, err := time.ParseDuration(conf.Mongo.ConnectionTimeout)
		assert.NoError(t, err)
		assert.Equal(t, connTimeout, server.DefaultMongoConnectionTimeout)
		assert.Equal(t, conf.Mongo.ConnectionURI, server.DefaultMongoConnectionURI)
		assert.Equal(t, conf.Mongo.NotepairDatabase, server.DefaultMongoNotepairDatabase)

		flushDebounce, err := time.ParseDuration(conf.Backend.FlushDebounce)
		assert.NoError(t, err)
		assert.Equal(t, flushDebounce, server.DefaultFlushDebounce)

		restoreLockTTL, err := time.ParseDuration(conf.Backend.RestoreLockTTL)
		assert.NoError(t, err)
		assert.Equal(t, restoreLockTTL, server.DefaultRestoreLockTTL)
	})

	t.Run("invalid port test", func(t *testing.T) {
		conf := server.NewConfig()
		conf.Transport.Port = -1
		assert.Error(t, conf.Validate())
	})
}
