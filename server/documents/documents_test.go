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

package documents_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/automerge/automerge-go"
	"github.com/stretchr/testify/assert"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/server/backend/blob"
	"github.com/notepair-team/notepair/server/documents"
	"github.com/notepair-team/notepair/server/profiling/prometheus"
)

// countingStore counts writes to the underlying blob store.
type countingStore struct {
	blob.Store
	puts int32
}

func (s *countingStore) Put(ctx context.Context, sessionID types.ID, data []byte) error {
	atomic.AddInt32(&s.puts, 1)
	return s.Store.Put(ctx, sessionID, data)
}

// failingStore rejects every write.
type failingStore struct {
	blob.Store
}

func (s *failingStore) Put(_ context.Context, _ types.ID, _ []byte) error {
	return errors.New("blob store unavailable")
}

func newStore(t *testing.T, blobs blob.Store, debounce time.Duration) (*documents.Store, *prometheus.Metrics) {
	metrics, err := prometheus.NewMetrics()
	assert.NoError(t, err)
	return documents.NewStore(blobs, debounce, metrics), metrics
}

// counterValue reads a counter from the registry by its fully qualified name.
func counterValue(t *testing.T, metrics *prometheus.Metrics, name string) float64 {
	families, err := metrics.Registry().Gather()
	assert.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		return total
	}
	return 0
}

// clientEdit loads the given full replica, appends the text and returns the
// resulting update blob the way a connected editor would.
func clientEdit(t *testing.T, full []byte, position int, insert string) []byte {
	doc, err := automerge.Load(full)
	assert.NoError(t, err)

	assert.NoError(t, doc.Path("content").Text().Insert(position, insert))
	_, err = doc.Commit("edit", automerge.CommitOptions{})
	assert.NoError(t, err)

	return doc.SaveIncremental()
}

func fullReplica(t *testing.T, store *documents.Store, sessionID types.ID) []byte {
	diffs, cookie, err := store.DiffSince(context.Background(), sessionID, nil)
	assert.NoError(t, err)
	assert.Len(t, diffs, 1)
	assert.NotEmpty(t, cookie)
	return diffs[0]
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("new session starts empty test", func(t *testing.T) {
		store, _ := newStore(t, blob.NewMemoryStore(), time.Minute)
		sessionID := types.NewID()

		content, err := store.Text(ctx, sessionID)
		assert.NoError(t, err)
		assert.Equal(t, "", content)
	})

	t.Run("updates merge in any order test", func(t *testing.T) {
		// Persist a base replica, then hydrate two independent stores
		// from the same blob so their replicas share history.
		baseBlobs := blob.NewMemoryStore()
		base, _ := newStore(t, baseBlobs, time.Minute)
		sessionID := types.NewID()

		full := fullReplica(t, base, sessionID)
		assert.NoError(t, base.ForceFlush(ctx, sessionID))
		saved, err := baseBlobs.Get(ctx, sessionID)
		assert.NoError(t, err)

		updateA := clientEdit(t, full, 0, "hello")
		updateB := clientEdit(t, full, 0, "world")

		blobsA := blob.NewMemoryStore()
		assert.NoError(t, blobsA.Put(ctx, sessionID, saved))
		storeA, _ := newStore(t, blobsA, time.Minute)

		blobsB := blob.NewMemoryStore()
		assert.NoError(t, blobsB.Put(ctx, sessionID, saved))
		storeB, _ := newStore(t, blobsB, time.Minute)

		assert.NoError(t, storeA.ApplyUpdate(ctx, sessionID, updateA))
		assert.NoError(t, storeA.ApplyUpdate(ctx, sessionID, updateB))

		assert.NoError(t, storeB.ApplyUpdate(ctx, sessionID, updateB))
		assert.NoError(t, storeB.ApplyUpdate(ctx, sessionID, updateA))

		contentA, err := storeA.Text(ctx, sessionID)
		assert.NoError(t, err)
		contentB, err := storeB.Text(ctx, sessionID)
		assert.NoError(t, err)

		assert.Contains(t, contentA, "hello")
		assert.Contains(t, contentA, "world")
		assert.Equal(t, contentA, contentB)
	})

	t.Run("duplicate update is idempotent test", func(t *testing.T) {
		store, _ := newStore(t, blob.NewMemoryStore(), time.Minute)
		sessionID := types.NewID()

		full := fullReplica(t, store, sessionID)
		update := clientEdit(t, full, 0, "once")

		assert.NoError(t, store.ApplyUpdate(ctx, sessionID, update))
		assert.NoError(t, store.ApplyUpdate(ctx, sessionID, update))

		content, err := store.Text(ctx, sessionID)
		assert.NoError(t, err)
		assert.Equal(t, "once", content)
	})

	t.Run("malformed update rejected test", func(t *testing.T) {
		store, _ := newStore(t, blob.NewMemoryStore(), time.Minute)
		sessionID := types.NewID()

		err := store.ApplyUpdate(ctx, sessionID, []byte("not an update"))
		assert.ErrorIs(t, err, documents.ErrInvalidUpdate)

		// The replica stays usable after a rejected update.
		content, err := store.Text(ctx, sessionID)
		assert.NoError(t, err)
		assert.Equal(t, "", content)
	})

	t.Run("replace text produces mergeable update test", func(t *testing.T) {
		store, _ := newStore(t, blob.NewMemoryStore(), time.Minute)
		sessionID := types.NewID()

		full := fullReplica(t, store, sessionID)
		assert.NoError(t, store.ApplyUpdate(ctx, sessionID, clientEdit(t, full, 0, "draft")))

		update, err := store.ReplaceText(ctx, sessionID, "restored", "restore")
		assert.NoError(t, err)
		assert.NotEmpty(t, update)

		content, err := store.Text(ctx, sessionID)
		assert.NoError(t, err)
		assert.Equal(t, "restored", content)

		// A peer that had the draft merges the replacement cleanly.
		peerFull := fullReplica(t, store, sessionID)
		peer, err := automerge.Load(peerFull)
		assert.NoError(t, err)
		assert.NoError(t, peer.LoadIncremental(update))
	})

	t.Run("debounced flush writes once test", func(t *testing.T) {
		blobs := &countingStore{Store: blob.NewMemoryStore()}
		store, _ := newStore(t, blobs, 50*time.Millisecond)
		sessionID := types.NewID()

		full := fullReplica(t, store, sessionID)
		assert.NoError(t, store.ApplyUpdate(ctx, sessionID, clientEdit(t, full, 0, "a")))
		assert.NoError(t, store.ApplyUpdate(ctx, sessionID, clientEdit(t, full, 0, "b")))

		assert.Eventually(t, func() bool {
			return atomic.LoadInt32(&blobs.puts) == 1
		}, time.Second, 10*time.Millisecond)

		// No further writes without further changes.
		time.Sleep(150 * time.Millisecond)
		assert.Equal(t, int32(1), atomic.LoadInt32(&blobs.puts))
	})

	t.Run("sustained editing defers flush test", func(t *testing.T) {
		blobs := &countingStore{Store: blob.NewMemoryStore()}
		store, _ := newStore(t, blobs, 300*time.Millisecond)
		sessionID := types.NewID()

		full := fullReplica(t, store, sessionID)

		// Edits arriving faster than the debounce keep pushing the
		// deadline out, so nothing is written while typing continues.
		for i := 0; i < 6; i++ {
			assert.NoError(t, store.ApplyUpdate(ctx, sessionID, clientEdit(t, full, 0, "x")))
			time.Sleep(50 * time.Millisecond)
		}
		assert.Equal(t, int32(0), atomic.LoadInt32(&blobs.puts))

		// Once the typing stops, exactly one flush lands.
		assert.Eventually(t, func() bool {
			return atomic.LoadInt32(&blobs.puts) == 1
		}, time.Second, 10*time.Millisecond)

		time.Sleep(400 * time.Millisecond)
		assert.Equal(t, int32(1), atomic.LoadInt32(&blobs.puts))
	})

	t.Run("flush counters track outcomes test", func(t *testing.T) {
		store, metrics := newStore(t, blob.NewMemoryStore(), time.Minute)
		sessionID := types.NewID()

		full := fullReplica(t, store, sessionID)
		assert.NoError(t, store.ApplyUpdate(ctx, sessionID, clientEdit(t, full, 0, "counted")))
		assert.NoError(t, store.ForceFlush(ctx, sessionID))

		assert.Equal(t, float64(1), counterValue(t, metrics, "notepair_documents_replica_flushes_total"))
		assert.Equal(t, float64(0), counterValue(t, metrics, "notepair_documents_replica_flush_errors_total"))

		broken, brokenMetrics := newStore(t, &failingStore{Store: blob.NewMemoryStore()}, time.Minute)
		brokenID := types.NewID()

		brokenFull := fullReplica(t, broken, brokenID)
		assert.NoError(t, broken.ApplyUpdate(ctx, brokenID, clientEdit(t, brokenFull, 0, "lost")))
		assert.Error(t, broken.ForceFlush(ctx, brokenID))

		assert.Equal(t, float64(0), counterValue(t, brokenMetrics, "notepair_documents_replica_flushes_total"))
		assert.Equal(t, float64(1), counterValue(t, brokenMetrics, "notepair_documents_replica_flush_errors_total"))
	})

	t.Run("evict persists and rehydrates test", func(t *testing.T) {
		blobs := blob.NewMemoryStore()
		store, _ := newStore(t, blobs, time.Minute)
		sessionID := types.NewID()

		full := fullReplica(t, store, sessionID)
		assert.NoError(t, store.ApplyUpdate(ctx, sessionID, clientEdit(t, full, 0, "persisted")))
		assert.NoError(t, store.Evict(ctx, sessionID))

		content, err := store.Text(ctx, sessionID)
		assert.NoError(t, err)
		assert.Equal(t, "persisted", content)
	})

	t.Run("sync cookie round trip test", func(t *testing.T) {
		store, _ := newStore(t, blob.NewMemoryStore(), time.Minute)
		sessionID := types.NewID()

		_, cookie, err := store.DiffSince(ctx, sessionID, nil)
		assert.NoError(t, err)
		assert.NotEmpty(t, cookie)

		_, next, err := store.DiffSince(ctx, sessionID, cookie)
		assert.NoError(t, err)
		assert.NotEmpty(t, next)

		_, _, err = store.DiffSince(ctx, sessionID, []byte("garbage"))
		assert.ErrorIs(t, err, documents.ErrInvalidStateVector)
	})
}
