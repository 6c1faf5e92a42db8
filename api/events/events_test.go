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

package events_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notepair-team/notepair/api/events"
	"github.com/notepair-team/notepair/api/types"
)

func TestDecode(t *testing.T) {
	t.Run("join payload round trip test", func(t *testing.T) {
		envelope, err := events.NewEnvelope(events.TypeJoinSession, events.JoinSession{
			SessionID:  types.ID("session-a"),
			ShareToken: "tok",
		})
		assert.NoError(t, err)

		decoded, err := events.Decode(envelope)
		assert.NoError(t, err)

		join, ok := decoded.(*events.JoinSession)
		assert.True(t, ok)
		assert.Equal(t, types.ID("session-a"), join.SessionID)
		assert.Equal(t, "tok", join.ShareToken)
	})

	t.Run("unknown event type rejected test", func(t *testing.T) {
		_, err := events.Decode(events.Envelope{
			Type:    events.Type("bogus"),
			Payload: json.RawMessage(`{}`),
		})
		assert.Error(t, err)
	})

	t.Run("empty payload rejected test", func(t *testing.T) {
		_, err := events.Decode(events.Envelope{Type: events.TypeEditOperation})
		assert.Error(t, err)
	})

	t.Run("unknown fields rejected test", func(t *testing.T) {
		_, err := events.Decode(events.Envelope{
			Type:    events.TypeCursorMove,
			Payload: json.RawMessage(`{"session_id":"s","cursor":{"position":1},"bogus":true}`),
		})
		assert.Error(t, err)
	})

	t.Run("malformed json rejected test", func(t *testing.T) {
		_, err := events.Decode(events.Envelope{
			Type:    events.TypeEditOperation,
			Payload: json.RawMessage(`{"session_id":`),
		})
		assert.Error(t, err)
	})
}
