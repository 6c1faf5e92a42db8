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

package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/notepair-team/notepair/api/events"
	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/server/backend/pubsub"
	"github.com/notepair-team/notepair/server/logging"
)

const (
	// sendBufferSize is the buffer size of a connection's outbound queue.
	sendBufferSize = 256

	// writeTimeout is the deadline of a single outbound write.
	writeTimeout = 10 * time.Second
)

// connection is one authenticated websocket connection. A user holds one
// connection and may join multiple sessions over it.
type connection struct {
	userID types.ID
	ws     *websocket.Conn

	sendCh    chan events.Envelope
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	joined map[types.ID]*pubsub.Subscription
}

func newConnection(userID types.ID, ws *websocket.Conn) *connection {
	return &connection{
		userID: userID,
		ws:     ws,
		sendCh: make(chan events.Envelope, sendBufferSize),
		closed: make(chan struct{}),
		joined: make(map[types.ID]*pubsub.Subscription),
	}
}

// enqueue queues the event for delivery. It reports false when the
// connection is closed or its outbound queue is full.
func (c *connection) enqueue(event events.Envelope) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.sendCh <- event:
		return true
	case <-c.closed:
		return false
	default:
		return false
	}
}

// close marks the connection closed and stops the write pump. Safe to call
// more than once.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// addSubscription records the session subscription backing a join. It
// reports false when the session was already joined.
func (c *connection) addSubscription(sessionID types.ID, sub *pubsub.Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.joined[sessionID]; ok {
		return false
	}
	c.joined[sessionID] = sub
	return true
}

// removeSubscription removes and returns the subscription of the session.
func (c *connection) removeSubscription(sessionID types.ID) (*pubsub.Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, ok := c.joined[sessionID]
	if ok {
		delete(c.joined, sessionID)
	}
	return sub, ok
}

// subscription returns the subscription of the session, if joined.
func (c *connection) subscription(sessionID types.ID) (*pubsub.Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, ok := c.joined[sessionID]
	return sub, ok
}

// sessions returns the ids of the sessions joined over this connection.
func (c *connection) sessions() []types.ID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]types.ID, 0, len(c.joined))
	for id := range c.joined {
		ids = append(ids, id)
	}
	return ids
}

// forward drains the subscription's events into the outbound queue until the
// subscription is closed.
func (c *connection) forward(sub *pubsub.Subscription) {
	for event := range sub.Events() {
		if ok := c.enqueue(event); !ok {
			logging.DefaultLogger().Warnf(
				"CONN: drop %s to %s: queue full or closed",
				event.Type, c.userID,
			)
		}
	}
}

// writePump writes queued events and keepalive pings to the socket until the
// connection is closed or a write fails.
func (c *connection) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.ws.Close(); err != nil {
			logging.DefaultLogger().Debugf("CONN: close %s: %v", c.userID, err)
		}
	}()

	for {
		select {
		case event := <-c.sendCh:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteJSON(event); err != nil {
				logging.DefaultLogger().Debugf("CONN: write to %s: %v", c.userID, err)
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
