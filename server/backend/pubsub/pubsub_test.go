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

package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/notepair-team/notepair/api/events"
	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/server/backend/pubsub"
)

func TestPubSub(t *testing.T) {
	ctx := context.Background()

	t.Run("publish skips publisher test", func(t *testing.T) {
		ps := pubsub.New()
		sessionID := types.NewID()
		alice, bob := types.NewID(), types.NewID()

		subA := ps.Subscribe(ctx, alice, sessionID)
		subB := ps.Subscribe(ctx, bob, sessionID)
		defer ps.Unsubscribe(ctx, sessionID, subA)
		defer ps.Unsubscribe(ctx, sessionID, subB)

		event, err := events.NewEnvelope(events.TypeCursorUpdate, events.CursorUpdate{
			SessionID: sessionID,
			UserID:    alice,
		})
		assert.NoError(t, err)

		ps.Publish(ctx, alice, sessionID, event)

		select {
		case received := <-subB.Events():
			assert.Equal(t, events.TypeCursorUpdate, received.Type)
		case <-time.After(time.Second):
			assert.Fail(t, "bob did not receive the event")
		}

		select {
		case <-subA.Events():
			assert.Fail(t, "publisher received its own event")
		default:
		}
	})

	t.Run("publish to all test", func(t *testing.T) {
		ps := pubsub.New()
		sessionID := types.NewID()
		alice, bob := types.NewID(), types.NewID()

		subA := ps.Subscribe(ctx, alice, sessionID)
		subB := ps.Subscribe(ctx, bob, sessionID)
		defer ps.Unsubscribe(ctx, sessionID, subA)
		defer ps.Unsubscribe(ctx, sessionID, subB)

		event, err := events.NewEnvelope(events.TypeSessionUpdated, events.SessionUpdated{
			UserID: alice,
		})
		assert.NoError(t, err)

		ps.Publish(ctx, "", sessionID, event)

		for _, sub := range []*pubsub.Subscription{subA, subB} {
			select {
			case received := <-sub.Events():
				assert.Equal(t, events.TypeSessionUpdated, received.Type)
			case <-time.After(time.Second):
				assert.Fail(t, "subscriber did not receive the event")
			}
		}
	})

	t.Run("unsubscribe prunes session test", func(t *testing.T) {
		ps := pubsub.New()
		sessionID := types.NewID()
		alice := types.NewID()

		sub := ps.Subscribe(ctx, alice, sessionID)
		assert.Equal(t, []types.ID{alice}, ps.Subscribers(sessionID))

		ps.Unsubscribe(ctx, sessionID, sub)
		assert.Nil(t, ps.Subscribers(sessionID))

		// The channel is closed after unsubscribe.
		_, ok := <-sub.Events()
		assert.False(t, ok)
	})
}
