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

package pubsub

import (
	"sync"
	gotime "time"

	"github.com/rs/xid"

	"github.com/notepair-team/notepair/api/events"
	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/cmap"
)

const (
	// publishTimeout is the timeout for publishing an event to a single
	// subscriber.
	publishTimeout = 100 * gotime.Millisecond

	// eventBufferSize is the buffer size of a subscription channel.
	eventBufferSize = 64
)

// Subscription is a subscriber's channel of session events.
type Subscription struct {
	id         string
	subscriber types.ID
	mu         sync.Mutex
	closed     bool
	events     chan events.Envelope
}

// NewSubscription creates a new instance of Subscription.
func NewSubscription(subscriber types.ID) *Subscription {
	return &Subscription{
		id:         xid.New().String(),
		subscriber: subscriber,
		events:     make(chan events.Envelope, eventBufferSize),
	}
}

// ID returns the id of this subscription.
func (s *Subscription) ID() string {
	return s.id
}

// Events returns the event channel of this subscription.
func (s *Subscription) Events() chan events.Envelope {
	return s.events
}

// Subscriber returns the subscriber of this subscription.
func (s *Subscription) Subscriber() types.ID {
	return s.subscriber
}

// Close closes all resources of this Subscription.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Publish publishes the given event to the subscriber. It reports false when
// the subscription is closed or the subscriber is too slow to keep up.
func (s *Subscription) Publish(event events.Envelope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.events <- event:
		return true
	case <-gotime.After(publishTimeout):
		return false
	}
}

// Subscriptions is the collection of subscriptions of a single session.
type Subscriptions struct {
	sessionID   types.ID
	internalMap *cmap.Map[string, *Subscription]
}

func newSubscriptions(sessionID types.ID) *Subscriptions {
	return &Subscriptions{
		sessionID:   sessionID,
		internalMap: cmap.New[string, *Subscription](),
	}
}

// Set adds the given subscription.
func (s *Subscriptions) Set(sub *Subscription) {
	s.internalMap.Set(sub.ID(), sub)
}

// Values returns the subscriptions of this collection.
func (s *Subscriptions) Values() []*Subscription {
	return s.internalMap.Values()
}

// Delete deletes the subscription of the given id.
func (s *Subscriptions) Delete(id string) {
	s.internalMap.Delete(id, func(sub *Subscription, exists bool) bool {
		if exists {
			sub.Close()
		}
		return exists
	})
}

// Len returns the number of subscriptions.
func (s *Subscriptions) Len() int {
	return s.internalMap.Len()
}
