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

// Package server provides the Notepair server which is the main entry point
// of the Notepair system. The server is responsible for starting the
// transport server and the profiling server.
package server

import (
	"context"
	gosync "sync"

	"github.com/notepair-team/notepair/server/backend"
	"github.com/notepair-team/notepair/server/profiling"
	"github.com/notepair-team/notepair/server/profiling/prometheus"
	"github.com/notepair-team/notepair/server/sessions"
	"github.com/notepair-team/notepair/server/transport"
)

// Notepair is a server of Notepair. The server receives edits from
// connections, merges them into the session's replica, and propagates them
// to the other participants of the session.
type Notepair struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	coordinator     *sessions.Coordinator
	transportServer *transport.Server
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of Notepair.
func New(conf *Config) (*Notepair, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(conf.Backend, conf.Mongo, metrics)
	if err != nil {
		return nil, err
	}

	coordinator := sessions.NewCoordinator(be)
	transportServer := transport.NewServer(conf.Transport, be, coordinator)

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &Notepair{
		conf:            conf,
		backend:         be,
		coordinator:     coordinator,
		transportServer: transportServer,
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Backend returns the backend of this server. It is used for testing.
func (n *Notepair) Backend() *backend.Backend {
	return n.backend
}

// Coordinator returns the session coordinator of this server. It is used
// for testing.
func (n *Notepair) Coordinator() *sessions.Coordinator {
	return n.coordinator
}

// Start starts the server by opening the transport port.
func (n *Notepair) Start() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if err := n.backend.Start(context.Background()); err != nil {
		return err
	}

	if n.profilingServer != nil {
		if err := n.profilingServer.Start(); err != nil {
			return err
		}
	}

	return n.transportServer.Start()
}

// Shutdown shuts down this Notepair server.
func (n *Notepair) Shutdown(graceful bool) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.shutdown {
		return nil
	}

	n.transportServer.Shutdown(graceful)
	if n.profilingServer != nil {
		n.profilingServer.Shutdown(graceful)
	}

	if err := n.backend.Shutdown(); err != nil {
		return err
	}

	close(n.shutdownCh)
	n.shutdown = true
	return nil
}

// ShutdownCh returns the shutdown channel.
func (n *Notepair) ShutdownCh() <-chan struct{} {
	return n.shutdownCh
}
