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

// Package backend provides the backend implementation of Notepair. This
// package is responsible for managing the database, the replica store and
// the other resources required to run the server.
package backend

import (
	"context"
	"errors"

	"github.com/notepair-team/notepair/pkg/locker"
	"github.com/notepair-team/notepair/server/backend/blob"
	"github.com/notepair-team/notepair/server/backend/database"
	memdb "github.com/notepair-team/notepair/server/backend/database/memory"
	"github.com/notepair-team/notepair/server/backend/database/mongo"
	"github.com/notepair-team/notepair/server/backend/presence"
	"github.com/notepair-team/notepair/server/backend/pubsub"
	"github.com/notepair-team/notepair/server/documents"
	"github.com/notepair-team/notepair/server/logging"
	"github.com/notepair-team/notepair/server/profiling/prometheus"
)

// Backend manages Notepair's backend such as Database, the blob store and
// the replica store. It also provides in-memory pubsub, presence and lockers.
type Backend struct {
	Config *Config

	// PubSub is used to publish/subscribe events to/from connections.
	PubSub *pubsub.PubSub
	// Lockers is used to serialize work per session.
	Lockers *locker.Locker
	// Leases is used for TTL-guarded exclusive operations such as restore.
	Leases *locker.LeaseLocker
	// Presence tracks the ephemeral participant state per session.
	Presence *presence.Tracker

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
	// DB is the database instance.
	DB database.Database
	// Blobs is the replica snapshot store.
	Blobs blob.Store
	// Documents is the replica store of active sessions.
	Documents *documents.Store
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	lockers := locker.New()
	leases := locker.NewLeaseLocker()
	pubsub := pubsub.New()

	if metrics == nil {
		var err error
		metrics, err = prometheus.NewMetrics()
		if err != nil {
			return nil, err
		}
	}

	tracker := presence.New(
		presence.WithActivityTimeout(conf.ParsePresenceActivityTimeout()),
		presence.WithSweepInterval(conf.ParsePresenceSweepInterval()),
	)

	// If the MongoDB configuration is given, create a MongoDB instance.
	// Otherwise, create a memory database instance.
	var db database.Database
	var err error
	if mongoConf != nil {
		db, err = mongo.Dial(mongoConf)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = memdb.New()
		if err != nil {
			return nil, err
		}
	}

	var blobs blob.Store
	if conf.SnapshotPath != "" {
		blobs, err = blob.NewBadgerStore(conf.SnapshotPath)
		if err != nil {
			return nil, err
		}
	} else {
		blobs = blob.NewMemoryStore()
	}

	docs := documents.NewStore(blobs, conf.ParseFlushDebounce(), metrics)

	dbInfo := "memory"
	if mongoConf != nil {
		dbInfo = mongoConf.ConnectionURI
	}
	blobInfo := "memory"
	if conf.SnapshotPath != "" {
		blobInfo = conf.SnapshotPath
	}
	logging.DefaultLogger().Infof("backend created: db: %s, blobs: %s", dbInfo, blobInfo)

	return &Backend{
		Config: conf,

		PubSub:   pubsub,
		Lockers:  lockers,
		Leases:   leases,
		Presence: tracker,

		Metrics:   metrics,
		DB:        db,
		Blobs:     blobs,
		Documents: docs,
	}, nil
}

// Start starts the backend.
func (b *Backend) Start(_ context.Context) error {
	b.Presence.Start()

	logging.DefaultLogger().Infof("backend started")
	return nil
}

// Shutdown closes all resources of this instance.
func (b *Backend) Shutdown() error {
	var errs []error

	b.Presence.Stop()

	if err := b.Documents.Close(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if err := b.Blobs.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.DB.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}
