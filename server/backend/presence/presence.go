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

// Package presence tracks the ephemeral per-session participant state:
// cursors, typing flags and liveness. Presence is never persisted; a record
// exists from join until leave or until the sweeper collects it.
package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/cmap"
	"github.com/notepair-team/notepair/server/logging"
)

const (
	// DefaultActivityTimeout is the idle duration after which a participant
	// is reported as inactive.
	DefaultActivityTimeout = 30 * time.Second

	// DefaultSweepInterval is the interval of the stale-record sweeper.
	DefaultSweepInterval = 30 * time.Second
)

// sessionPresence holds the records of a single session.
type sessionPresence struct {
	mu      sync.RWMutex
	records map[types.ID]*types.PresenceRecord
}

// Tracker tracks presence records per session.
type Tracker struct {
	sessions *cmap.Map[types.ID, *sessionPresence]

	activityTimeout time.Duration
	sweepInterval   time.Duration

	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithActivityTimeout overrides the activity timeout.
func WithActivityTimeout(timeout time.Duration) Option {
	return func(t *Tracker) {
		t.activityTimeout = timeout
	}
}

// WithSweepInterval overrides the sweep interval.
func WithSweepInterval(interval time.Duration) Option {
	return func(t *Tracker) {
		t.sweepInterval = interval
	}
}

// New creates a new Tracker.
func New(opts ...Option) *Tracker {
	ctx, cancelFunc := context.WithCancel(context.Background())

	t := &Tracker{
		sessions:        cmap.New[types.ID, *sessionPresence](),
		activityTimeout: DefaultActivityTimeout,
		sweepInterval:   DefaultSweepInterval,
		ctx:             ctx,
		cancelFunc:      cancelFunc,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start starts the stale-record sweeper.
func (t *Tracker) Start() {
	go t.run()
}

// Stop stops the sweeper.
func (t *Tracker) Stop() {
	t.cancelFunc()
}

// Join creates a presence record for the user in the session.
func (t *Tracker) Join(sessionID types.ID, userID types.ID) {
	sp := t.sessions.Upsert(sessionID, func(sp *sessionPresence, exists bool) *sessionPresence {
		if !exists {
			sp = &sessionPresence{records: make(map[types.ID]*types.PresenceRecord)}
		}
		return sp
	})

	sp.mu.Lock()
	defer sp.mu.Unlock()

	sp.records[userID] = &types.PresenceRecord{
		UserID:   userID,
		LastSeen: time.Now(),
	}
}

// Leave removes the user's presence record from the session.
func (t *Tracker) Leave(sessionID types.ID, userID types.ID) {
	sp, ok := t.sessions.Get(sessionID)
	if !ok {
		return
	}

	sp.mu.Lock()
	delete(sp.records, userID)
	empty := len(sp.records) == 0
	sp.mu.Unlock()

	if empty {
		t.sessions.Delete(sessionID, func(sp *sessionPresence, exists bool) bool {
			if !exists {
				return false
			}
			sp.mu.RLock()
			defer sp.mu.RUnlock()
			return len(sp.records) == 0
		})
	}
}

// UpdateCursor stores the user's cursor state and refreshes their liveness.
// It reports false when the user has no record in the session.
func (t *Tracker) UpdateCursor(sessionID types.ID, userID types.ID, cursor types.Cursor) bool {
	sp, ok := t.sessions.Get(sessionID)
	if !ok {
		return false
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()

	record, ok := sp.records[userID]
	if !ok {
		return false
	}

	record.Cursor = cursor
	record.LastSeen = time.Now()
	return true
}

// Touch refreshes the user's liveness without changing their cursor.
func (t *Tracker) Touch(sessionID types.ID, userID types.ID) bool {
	sp, ok := t.sessions.Get(sessionID)
	if !ok {
		return false
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()

	record, ok := sp.records[userID]
	if !ok {
		return false
	}

	record.LastSeen = time.Now()
	return true
}

// Snapshot returns the presence records of the session with the active flag
// computed against the activity timeout. Records are ordered by user id for
// stable output.
func (t *Tracker) Snapshot(sessionID types.ID) []types.PresenceRecord {
	sp, ok := t.sessions.Get(sessionID)
	if !ok {
		return nil
	}

	now := time.Now()

	sp.mu.RLock()
	records := make([]types.PresenceRecord, 0, len(sp.records))
	for _, record := range sp.records {
		copied := *record
		copied.Active = now.Sub(record.LastSeen) <= t.activityTimeout
		records = append(records, copied)
	}
	sp.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].UserID < records[j].UserID
	})
	return records
}

// run is the sweep loop. Records idle for longer than twice the activity
// timeout belong to connections that vanished without a leave.
func (t *Tracker) run() {
	for {
		select {
		case <-time.After(t.sweepInterval):
		case <-t.ctx.Done():
			return
		}

		if count := t.sweep(); count > 0 {
			logging.DefaultLogger().Infof("PRSC: swept %d stale records", count)
		}
	}
}

func (t *Tracker) sweep() int {
	threshold := 2 * t.activityTimeout
	now := time.Now()
	swept := 0

	for _, sessionID := range t.sessions.Keys() {
		sp, ok := t.sessions.Get(sessionID)
		if !ok {
			continue
		}

		sp.mu.Lock()
		for userID, record := range sp.records {
			if now.Sub(record.LastSeen) > threshold {
				delete(sp.records, userID)
				swept++
			}
		}
		empty := len(sp.records) == 0
		sp.mu.Unlock()

		if empty {
			t.sessions.Delete(sessionID, func(sp *sessionPresence, exists bool) bool {
				if !exists {
					return false
				}
				sp.mu.RLock()
				defer sp.mu.RUnlock()
				return len(sp.records) == 0
			})
		}
	}
	return swept
}
