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

// Package documents owns the in-memory replicas of session documents. Each
// session has at most one replica per server; updates merge into it, diffs
// are computed against it, and a debounced flush persists it to the blob
// store.
package documents

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/cmap"
	"github.com/notepair-team/notepair/server/backend/blob"
	"github.com/notepair-team/notepair/server/logging"
	"github.com/notepair-team/notepair/server/profiling/prometheus"
)

// DefaultFlushDebounce is the delay between the last change and the flush
// persisting it.
const DefaultFlushDebounce = 3 * time.Second

// entry guards the exactly-once hydration of one replica.
type entry struct {
	once    sync.Once
	replica *Replica
	err     error
}

// Store loads and caches the replicas of active sessions.
type Store struct {
	replicas *cmap.Map[types.ID, *entry]
	blobs    blob.Store
	debounce time.Duration
	metrics  *prometheus.Metrics
}

// NewStore creates a new Store flushing to the given blob store.
func NewStore(blobs blob.Store, debounce time.Duration, metrics *prometheus.Metrics) *Store {
	if debounce <= 0 {
		debounce = DefaultFlushDebounce
	}
	return &Store{
		replicas: cmap.New[types.ID, *entry](),
		blobs:    blobs,
		debounce: debounce,
		metrics:  metrics,
	}
}

// GetOrLoad returns the session's replica, hydrating it from the blob store
// on first access. Concurrent callers share a single hydration.
func (s *Store) GetOrLoad(ctx context.Context, sessionID types.ID) (*Replica, error) {
	e := s.replicas.Upsert(sessionID, func(e *entry, exists bool) *entry {
		if !exists {
			e = &entry{}
		}
		return e
	})

	e.once.Do(func() {
		e.replica, e.err = s.hydrate(ctx, sessionID)
	})
	if e.err != nil {
		// Drop the failed entry so a later access can retry.
		s.replicas.Delete(sessionID, func(cur *entry, exists bool) bool {
			return exists && cur == e
		})
		return nil, e.err
	}

	return e.replica, nil
}

func (s *Store) hydrate(ctx context.Context, sessionID types.ID) (*Replica, error) {
	data, err := s.blobs.Get(ctx, sessionID)
	if err != nil {
		if !stderrors.Is(err, blob.ErrBlobNotFound) {
			return nil, err
		}

		replica, err := newReplica()
		if err != nil {
			return nil, err
		}
		s.scheduleFlush(sessionID, replica)
		return replica, nil
	}

	return loadReplica(data)
}

// ApplyUpdate merges the given update blob into the session's replica and
// schedules a flush.
func (s *Store) ApplyUpdate(ctx context.Context, sessionID types.ID, update []byte) error {
	replica, err := s.GetOrLoad(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := replica.applyUpdate(update); err != nil {
		return err
	}

	s.scheduleFlush(sessionID, replica)
	return nil
}

// DiffSince computes the diffs a client at the given state vector is missing
// and the state vector it should present next time. An empty state vector
// yields the full replica.
func (s *Store) DiffSince(
	ctx context.Context,
	sessionID types.ID,
	stateVector []byte,
) ([][]byte, []byte, error) {
	replica, err := s.GetOrLoad(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	return replica.diffSince(stateVector)
}

// Text returns the current content of the session's document.
func (s *Store) Text(ctx context.Context, sessionID types.ID) (string, error) {
	replica, err := s.GetOrLoad(ctx, sessionID)
	if err != nil {
		return "", err
	}

	return replica.text()
}

// ReplaceText overwrites the session's content with the given string as one
// mergeable change, and returns that change as an update blob for
// rebroadcast.
func (s *Store) ReplaceText(
	ctx context.Context,
	sessionID types.ID,
	content string,
	message string,
) ([]byte, error) {
	replica, err := s.GetOrLoad(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	update, err := replica.replaceText(content, message)
	if err != nil {
		return nil, err
	}

	s.scheduleFlush(sessionID, replica)
	return update, nil
}

// ForceFlush persists the session's replica now, bypassing the debounce.
func (s *Store) ForceFlush(ctx context.Context, sessionID types.ID) error {
	e, ok := s.replicas.Get(sessionID)
	if !ok || e.replica == nil {
		return nil
	}

	replica := e.replica
	replica.mu.Lock()
	if replica.flushTimer != nil {
		replica.flushTimer.Stop()
		replica.flushTimer = nil
	}
	replica.mu.Unlock()

	data := replica.save()
	if data == nil {
		return nil
	}

	if err := s.blobs.Put(ctx, sessionID, data); err != nil {
		replica.markDirty()
		s.metrics.AddReplicaFlushError()
		return fmt.Errorf("flush replica %s: %w", sessionID, err)
	}
	s.metrics.AddReplicaFlush()
	return nil
}

// Evict flushes and removes the session's replica from memory.
func (s *Store) Evict(ctx context.Context, sessionID types.ID) error {
	if err := s.ForceFlush(ctx, sessionID); err != nil {
		return err
	}

	s.replicas.Remove(sessionID)
	return nil
}

// Close flushes every loaded replica.
func (s *Store) Close(ctx context.Context) error {
	var lastErr error
	for _, sessionID := range s.replicas.Keys() {
		if err := s.ForceFlush(ctx, sessionID); err != nil {
			logging.From(ctx).Error(err)
			lastErr = err
		}
	}
	return lastErr
}

// scheduleFlush arms the replica's debounce timer. Each call pushes the
// deadline out again, so the flush fires only after a quiet period with
// no edits.
func (s *Store) scheduleFlush(sessionID types.ID, replica *Replica) {
	replica.mu.Lock()
	defer replica.mu.Unlock()

	if replica.flushTimer != nil {
		replica.flushTimer.Reset(s.debounce)
		return
	}

	replica.flushTimer = time.AfterFunc(s.debounce, func() {
		s.flush(context.Background(), sessionID, replica)
	})
}

func (s *Store) flush(ctx context.Context, sessionID types.ID, replica *Replica) {
	replica.mu.Lock()
	replica.flushTimer = nil
	replica.mu.Unlock()

	data := replica.save()
	if data == nil {
		return
	}

	if err := s.blobs.Put(ctx, sessionID, data); err != nil {
		logging.From(ctx).Errorf("flush replica %s: %v", sessionID, err)
		replica.markDirty()
		s.metrics.AddReplicaFlushError()
		s.scheduleFlush(sessionID, replica)
		return
	}
	s.metrics.AddReplicaFlush()
}
