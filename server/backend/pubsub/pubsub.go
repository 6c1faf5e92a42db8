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

// Package pubsub provides the in-process fan-out of session events to the
// connections subscribed to each session.
package pubsub

import (
	"context"

	"go.uber.org/zap"

	"github.com/notepair-team/notepair/api/events"
	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/cmap"
	"github.com/notepair-team/notepair/server/logging"
)

// PubSub is the memory implementation of PubSub, used for single server.
type PubSub struct {
	sessionSubsMap *cmap.Map[types.ID, *Subscriptions]
}

// New creates an instance of PubSub.
func New() *PubSub {
	return &PubSub{
		sessionSubsMap: cmap.New[types.ID, *Subscriptions](),
	}
}

// Subscribe subscribes the given user to the session's events.
func (m *PubSub) Subscribe(
	ctx context.Context,
	subscriber types.ID,
	sessionID types.ID,
) *Subscription {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Subscribe(%s,%s)`, sessionID, subscriber)
	}

	var newSub *Subscription
	_ = m.sessionSubsMap.Upsert(sessionID, func(subs *Subscriptions, exists bool) *Subscriptions {
		if !exists {
			subs = newSubscriptions(sessionID)
		}

		newSub = NewSubscription(subscriber)
		subs.Set(newSub)
		return subs
	})

	return newSub
}

// Unsubscribe unsubscribes the given subscription from the session.
func (m *PubSub) Unsubscribe(
	ctx context.Context,
	sessionID types.ID,
	sub *Subscription,
) {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Unsubscribe(%s,%s)`, sessionID, sub.Subscriber())
	}

	sub.Close()

	if subs, ok := m.sessionSubsMap.Get(sessionID); ok {
		subs.Delete(sub.ID())

		m.sessionSubsMap.Delete(sessionID, func(subs *Subscriptions, exists bool) bool {
			return exists && subs.Len() == 0
		})
	}
}

// Publish publishes the given event to the session's subscribers. The
// publisher's own subscriptions are skipped; pass an empty publisher id to
// reach every subscriber.
func (m *PubSub) Publish(
	ctx context.Context,
	publisher types.ID,
	sessionID types.ID,
	event events.Envelope,
) {
	subs, ok := m.sessionSubsMap.Get(sessionID)
	if !ok {
		return
	}

	for _, sub := range subs.Values() {
		if publisher != "" && sub.Subscriber() == publisher {
			continue
		}

		if ok := sub.Publish(event); !ok {
			logging.From(ctx).Warnf(
				`Publish(%s,%s) to %s timeout or closed`,
				sessionID, event.Type, sub.Subscriber(),
			)
		}
	}
}

// Subscribers returns the ids of the users subscribed to the session.
func (m *PubSub) Subscribers(sessionID types.ID) []types.ID {
	subs, ok := m.sessionSubsMap.Get(sessionID)
	if !ok {
		return nil
	}

	var ids []types.ID
	for _, sub := range subs.Values() {
		ids = append(ids, sub.Subscriber())
	}
	return ids
}
