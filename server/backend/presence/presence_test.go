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

package presence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/server/backend/presence"
)

func TestTracker(t *testing.T) {
	t.Run("join update snapshot test", func(t *testing.T) {
		tracker := presence.New()
		sessionID := types.NewID()
		alice, bob := types.NewID(), types.NewID()

		tracker.Join(sessionID, alice)
		tracker.Join(sessionID, bob)

		ok := tracker.UpdateCursor(sessionID, alice, types.Cursor{Position: 7, Typing: true})
		assert.True(t, ok)

		records := tracker.Snapshot(sessionID)
		assert.Len(t, records, 2)
		for _, record := range records {
			assert.True(t, record.Active)
			if record.UserID == alice {
				assert.Equal(t, 7, record.Cursor.Position)
				assert.True(t, record.Cursor.Typing)
			}
		}
	})

	t.Run("update without join test", func(t *testing.T) {
		tracker := presence.New()
		sessionID := types.NewID()

		ok := tracker.UpdateCursor(sessionID, types.NewID(), types.Cursor{})
		assert.False(t, ok)
		assert.False(t, tracker.Touch(sessionID, types.NewID()))
	})

	t.Run("leave removes record test", func(t *testing.T) {
		tracker := presence.New()
		sessionID := types.NewID()
		alice, bob := types.NewID(), types.NewID()

		tracker.Join(sessionID, alice)
		tracker.Join(sessionID, bob)
		tracker.Leave(sessionID, alice)

		records := tracker.Snapshot(sessionID)
		assert.Len(t, records, 1)
		assert.Equal(t, bob, records[0].UserID)

		tracker.Leave(sessionID, bob)
		assert.Nil(t, tracker.Snapshot(sessionID))
	})

	t.Run("inactive after timeout test", func(t *testing.T) {
		tracker := presence.New(presence.WithActivityTimeout(10 * time.Millisecond))
		sessionID := types.NewID()
		alice := types.NewID()

		tracker.Join(sessionID, alice)
		time.Sleep(30 * time.Millisecond)

		records := tracker.Snapshot(sessionID)
		assert.Len(t, records, 1)
		assert.False(t, records[0].Active)

		// Touch makes the participant active again.
		assert.True(t, tracker.Touch(sessionID, alice))
		records = tracker.Snapshot(sessionID)
		assert.True(t, records[0].Active)
	})

	t.Run("sweeper collects stale records test", func(t *testing.T) {
		tracker := presence.New(
			presence.WithActivityTimeout(5*time.Millisecond),
			presence.WithSweepInterval(10*time.Millisecond),
		)
		sessionID := types.NewID()

		tracker.Join(sessionID, types.NewID())
		tracker.Start()
		defer tracker.Stop()

		assert.Eventually(t, func() bool {
			return tracker.Snapshot(sessionID) == nil
		}, time.Second, 5*time.Millisecond)
	})
}
